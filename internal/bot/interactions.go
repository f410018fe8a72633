package bot

import (
	"context"
	"errors"
	"strings"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"
	"modmail-bridge/internal/pending"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const msgPromptExpired = "❌ This prompt has expired. Send me a new message to start again."

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	b.handleInteraction(context.Background(), interaction)
}

func (b *Bot) handleInteraction(ctx context.Context, interaction *discordgo.InteractionCreate) {
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, interaction)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, interaction)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, interaction)
	}
}

func (b *Bot) handleComponent(ctx context.Context, interaction *discordgo.InteractionCreate) {
	data := interaction.MessageComponentData()
	action, arg := embeds.ParseCustomID(data.CustomID)
	switch action {
	case embeds.ActionQuickReply:
		b.handleQuickReply(ctx, interaction, arg)
	case embeds.ActionIntroStart:
		b.handleIntroStart(ctx, interaction, arg)
	case embeds.ActionIntroCancel:
		b.handleIntroCancel(ctx, interaction, arg)
	case embeds.ActionServerSelect:
		value := ""
		if len(data.Values) > 0 {
			value = data.Values[0]
		}
		b.handleServerSelect(ctx, interaction, arg, value)
	}
}

func (b *Bot) handleModal(ctx context.Context, interaction *discordgo.InteractionCreate) {
	data := interaction.ModalSubmitData()
	action, arg := embeds.ParseCustomID(data.CustomID)
	if action == embeds.ActionIntroForm {
		b.handleIntroForm(ctx, interaction, arg, data.Components)
	}
}

func (b *Bot) handleQuickReply(ctx context.Context, interaction *discordgo.InteractionCreate, name string) {
	thread, ok := b.threadForInteraction(ctx, interaction, "❌ This button can only be used in a modmail thread.")
	if !ok {
		return
	}
	macro, err := b.api.GetMacro(ctx, interaction.GuildID, name)
	if err != nil {
		if backend.IsNotFound(err) {
			b.respond(interaction, `❌ Macro "`+name+`" not found.`, true)
			return
		}
		b.logger.Warn("quick reply macro lookup failed", zap.Error(err), zap.String("guild_id", interaction.GuildID))
		b.respond(interaction, "❌ Failed to send quick reply.", true)
		return
	}
	user, err := b.sendMacro(ctx, thread, macro, interactionUser(interaction), "QUICK REPLY")
	if err != nil {
		b.logger.Warn("quick reply failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
		b.respond(interaction, "❌ Failed to send quick reply.", true)
		return
	}
	b.respondEmbed(interaction, embeds.Confirmation(user, macro.Content, `Quick reply "`+name+`" sent to`), false)
}

// pendingFor loads the entry behind a prompt and checks it belongs to the
// user pressing it.
func (b *Bot) pendingFor(ctx context.Context, interaction *discordgo.InteractionCreate, token string, take bool) (pending.Entry, bool) {
	var (
		entry pending.Entry
		err   error
	)
	if take {
		entry, err = b.pending.Take(ctx, token)
	} else {
		entry, err = b.pending.Get(ctx, token)
	}
	if err != nil {
		if !errors.Is(err, pending.ErrNotFound) && !errors.Is(err, pending.ErrExpired) {
			b.logger.Warn("pending lookup failed", zap.Error(err))
		}
		b.respond(interaction, msgPromptExpired, true)
		return pending.Entry{}, false
	}
	if entry.UserID != interactionUser(interaction).ID {
		b.respond(interaction, msgPromptExpired, true)
		return pending.Entry{}, false
	}
	return entry, true
}

func (b *Bot) handleIntroStart(ctx context.Context, interaction *discordgo.InteractionCreate, token string) {
	entry, ok := b.pendingFor(ctx, interaction, token, false)
	if !ok {
		return
	}
	b.reply(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: embeds.IntroModal(entry.Token, b.guildName(entry.GuildID)),
	})
}

func (b *Bot) handleIntroCancel(ctx context.Context, interaction *discordgo.InteractionCreate, token string) {
	if _, ok := b.pendingFor(ctx, interaction, token, true); !ok {
		return
	}
	b.reply(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Cancelled. Send me a new message whenever you want to reach the moderators.",
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (b *Bot) handleIntroForm(ctx context.Context, interaction *discordgo.InteractionCreate, token string, components []discordgo.MessageComponent) {
	entry, ok := b.pendingFor(ctx, interaction, token, true)
	if !ok {
		return
	}
	urgency, err := backend.ParseUrgency(embeds.ModalValue(components, embeds.FieldUrgency))
	if err != nil {
		urgency = backend.DefaultUrgency
	}
	intro := &embeds.IntroForm{
		Subject:     strings.TrimSpace(embeds.ModalValue(components, embeds.FieldSubject)),
		Description: strings.TrimSpace(embeds.ModalValue(components, embeds.FieldDescription)),
		Urgency:     urgency,
	}

	b.deferReply(interaction, true)
	user := interactionUser(interaction)
	thread, err := b.openThread(ctx, user, entry.GuildID, intro)
	if err != nil {
		b.followup(interaction, "❌ Your conversation could not be opened.")
		return
	}
	if err := b.forward(ctx, user, thread, entry.Messages); err != nil {
		b.logger.Warn("forward queued messages failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
		b.followup(interaction, msgDMFailed)
		return
	}
	b.followup(interaction, "✅ Your conversation has been opened. The moderators will reply here.")
}

// handleServerSelect resumes the DM that prompted the guild picker, scoped to
// the chosen guild.
func (b *Bot) handleServerSelect(ctx context.Context, interaction *discordgo.InteractionCreate, token, guildID string) {
	entry, ok := b.pendingFor(ctx, interaction, token, true)
	if !ok {
		return
	}
	if !entry.HasGuild(guildID) {
		b.respond(interaction, "❌ That server is not one of the options.", true)
		return
	}
	b.reply(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Contacting **" + b.guildLabel(guildID) + "**…",
			Components: []discordgo.MessageComponent{},
		},
	})

	user := interactionUser(interaction)
	if err := b.resumeSelection(ctx, user, entry, guildID); err != nil {
		b.logger.Warn("resume after server select failed", zap.Error(err), zap.String("user_id", user.ID), zap.String("guild_id", guildID))
		b.sendDMText(user.ID, msgDMFailed)
	}
}

func (b *Bot) resumeSelection(ctx context.Context, user *discordgo.User, entry pending.Entry, guildID string) error {
	if entry.Kind == pending.KindSelectExisting {
		thread, err := b.api.FindOpenThreadByUser(ctx, guildID, user.ID)
		if err == nil {
			if thread.GuildID == "" {
				thread.GuildID = guildID
			}
			return b.forward(ctx, user, thread, entry.Messages)
		}
		if !backend.IsNotFound(err) {
			return err
		}
	}
	return b.handleSingleGuild(ctx, user, guildID, entry.Messages)
}

func (b *Bot) guildLabel(guildID string) string {
	if name := b.guildName(guildID); name != "" {
		return name
	}
	return "Server " + guildID
}

// threadForInteraction resolves the modmail thread behind the channel the
// interaction came from, replying with notThread when there is none.
func (b *Bot) threadForInteraction(ctx context.Context, interaction *discordgo.InteractionCreate, notThread string) (backend.Thread, bool) {
	if interaction.GuildID == "" {
		b.respond(interaction, notThread, true)
		return backend.Thread{}, false
	}
	thread, err := b.api.FindThreadByChannel(ctx, interaction.GuildID, interaction.ChannelID)
	if err != nil {
		if !backend.IsNotFound(err) {
			b.logger.Warn("thread lookup failed", zap.Error(err), zap.String("channel_id", interaction.ChannelID))
		}
		b.respond(interaction, notThread, true)
		return backend.Thread{}, false
	}
	if thread.GuildID == "" {
		thread.GuildID = interaction.GuildID
	}
	return thread, true
}
