package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	msgNotThread      = "❌ This command can only be used in a modmail thread."
	msgNotThreads     = "❌ This command can only be used in modmail threads."
	msgGuildOnly      = "❌ This command can only be used in a server."
	msgUnknownCommand = "❌ Unknown command."
)

func (b *Bot) handleCommand(ctx context.Context, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" {
		b.respond(interaction, msgGuildOnly, true)
		return
	}
	data := interaction.ApplicationCommandData()
	sub, opts := splitSubcommand(data)

	switch data.Name {
	case "message":
		b.commandMessage(ctx, interaction, opts)
	case "close":
		b.commandClose(ctx, interaction)
	case "delete":
		b.commandDelete(ctx, interaction)
	case "note":
		b.commandNote(ctx, interaction, opts)
	case "block":
		b.commandBlock(ctx, interaction, opts)
	case "unblock":
		b.commandUnblock(ctx, interaction, opts)
	case "urgency":
		b.commandUrgency(ctx, interaction, opts)
	case "macro":
		b.commandMacro(ctx, interaction, sub, opts)
	case "config":
		b.commandConfig(ctx, interaction, sub, opts)
	default:
		b.respond(interaction, msgUnknownCommand, true)
	}
}

// commandMessage starts or continues a conversation from the moderator side.
func (b *Bot) commandMessage(ctx context.Context, interaction *discordgo.InteractionCreate, opts commandOptions) {
	target := opts.User("user")
	content := strings.TrimSpace(opts.String("message"))
	if target == nil || content == "" {
		b.respond(interaction, "❌ Failed to send message. Please check the user ID.", true)
		return
	}
	moderator := interactionUser(interaction)
	b.deferReply(interaction, true)

	user, err := b.discord.User(target.ID)
	if err != nil {
		b.logger.Warn("message target lookup failed", zap.Error(err), zap.String("user_id", target.ID))
		b.followup(interaction, "❌ Failed to send message. Please check the user ID.")
		return
	}
	if _, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.ModeratorMessage(content)},
	}); err != nil {
		b.logger.Warn("moderator dm failed", zap.Error(err), zap.String("user_id", user.ID))
		b.followup(interaction, "❌ Failed to send message. Please check the user ID.")
		return
	}

	thread, err := b.api.FindOpenThreadByUser(ctx, interaction.GuildID, user.ID)
	if err != nil {
		if !backend.IsNotFound(err) {
			b.logger.Warn("open thread lookup failed", zap.Error(err), zap.String("user_id", user.ID))
			b.followup(interaction, "❌ Failed to send message. Please check the user ID.")
			return
		}
		thread, err = b.createThread(ctx, user, interaction.GuildID, nil)
		if errors.Is(err, errNotConfigured) {
			b.followup(interaction, "❌ Modmail is not configured. Run `/config set modmail-category` first.")
			return
		}
		if err != nil {
			b.logger.Warn("create thread for message failed", zap.Error(err), zap.String("user_id", user.ID))
			b.followup(interaction, msgCreateFailed)
			return
		}
	}
	if thread.GuildID == "" {
		thread.GuildID = interaction.GuildID
	}

	if _, err := b.api.AddMessage(ctx, thread.GuildID, thread.ID, backend.NewMessage{
		AuthorID:  moderator.ID,
		AuthorTag: embeds.Tag(moderator),
		Content:   content,
		GuildID:   thread.GuildID,
	}); err != nil {
		b.logger.Warn("record moderator message failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
	}
	if _, err := b.discord.SendChannel(thread.ChannelID(), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.Confirmation(user, content, "Message sent to")},
	}); err != nil {
		b.logger.Warn("thread confirmation failed", zap.Error(err), zap.String("channel_id", thread.ChannelID()))
	}
	b.followup(interaction, "✅ Message sent to "+embeds.Tag(user))
}

func (b *Bot) commandClose(ctx context.Context, interaction *discordgo.InteractionCreate) {
	thread, ok := b.threadForInteraction(ctx, interaction, "❌ This is not a modmail thread.")
	if !ok {
		return
	}
	if !thread.IsOpen {
		b.respond(interaction, "❌ This thread is already closed.", true)
		return
	}
	moderator := interactionUser(interaction)
	tag := embeds.Tag(moderator)
	if _, err := b.api.CloseThread(ctx, thread.GuildID, thread.ID, backend.CloseThreadRequest{
		ClosedByID:  moderator.ID,
		ClosedByTag: tag,
	}); err != nil {
		b.logger.Warn("close thread failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
		b.respond(interaction, "❌ Failed to close thread.", true)
		return
	}
	b.respondEmbed(interaction, embeds.ThreadClosed(tag), false)
	b.announceClosure(ctx, thread, tag)
	b.audit.Log(ctx, audit.LevelInfo, thread.GuildID, thread.UserID, audit.EventThreadClosed, "Closed by "+tag)
}

// commandDelete closes the thread if needed and removes its channel.
func (b *Bot) commandDelete(ctx context.Context, interaction *discordgo.InteractionCreate) {
	thread, ok := b.threadForInteraction(ctx, interaction, msgNotThread)
	if !ok {
		return
	}
	moderator := interactionUser(interaction)
	tag := embeds.Tag(moderator)
	if thread.IsOpen {
		if _, err := b.api.CloseThread(ctx, thread.GuildID, thread.ID, backend.CloseThreadRequest{
			ClosedByID:  moderator.ID,
			ClosedByTag: tag,
		}); err != nil {
			b.logger.Warn("close before delete failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
			b.respond(interaction, "❌ Failed to delete thread.", true)
			return
		}
	}
	b.respond(interaction, "🗑️ Deleting this thread...", false)
	if err := b.discord.DeleteChannel(thread.ChannelID()); err != nil {
		b.logger.Warn("delete thread channel failed", zap.Error(err), zap.String("channel_id", thread.ChannelID()))
		return
	}
	b.audit.Log(ctx, audit.LevelWarn, thread.GuildID, thread.UserID, audit.EventThreadDeleted, "Deleted by "+tag)
}

func (b *Bot) commandNote(ctx context.Context, interaction *discordgo.InteractionCreate, opts commandOptions) {
	thread, ok := b.threadForInteraction(ctx, interaction, msgNotThread)
	if !ok {
		return
	}
	content := strings.TrimSpace(opts.String("content"))
	if content == "" {
		b.respond(interaction, "❌ Failed to add note.", true)
		return
	}
	moderator := interactionUser(interaction)
	if _, err := b.api.AddNote(ctx, thread.GuildID, thread.ID, backend.NewNote{
		AuthorID:  moderator.ID,
		AuthorTag: embeds.Tag(moderator),
		Content:   content,
		GuildID:   thread.GuildID,
	}); err != nil {
		b.logger.Warn("add note failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
		b.respond(interaction, "❌ Failed to add note.", true)
		return
	}
	b.respond(interaction, "✅ Internal note added to thread.", true)
}

func (b *Bot) commandBlock(ctx context.Context, interaction *discordgo.InteractionCreate, opts commandOptions) {
	target := opts.User("user")
	if target == nil {
		b.respond(interaction, "❌ Failed to block user.", true)
		return
	}
	tag := embeds.Tag(target)
	blocked, err := b.api.IsBlocked(ctx, interaction.GuildID, target.ID)
	if err != nil {
		b.logger.Warn("block check failed", zap.Error(err), zap.String("user_id", target.ID))
		b.respond(interaction, "❌ Failed to block user.", true)
		return
	}
	if blocked {
		b.respond(interaction, fmt.Sprintf("❌ User %s is already blocked.", tag), true)
		return
	}

	reason := strings.TrimSpace(opts.String("reason"))
	if reason == "" {
		reason = "No reason provided"
	}
	moderator := interactionUser(interaction)
	if _, err := b.api.BlockUser(ctx, interaction.GuildID, backend.NewBlockedUser{
		UserID:       target.ID,
		UserTag:      tag,
		BlockedBy:    moderator.ID,
		BlockedByTag: embeds.Tag(moderator),
		Reason:       &reason,
		GuildID:      interaction.GuildID,
	}); err != nil {
		b.logger.Warn("block user failed", zap.Error(err), zap.String("user_id", target.ID))
		b.respond(interaction, "❌ Failed to block user.", true)
		return
	}
	b.respond(interaction, fmt.Sprintf("✅ User %s has been blocked. Reason: %s", tag, reason), true)
	b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, target.ID, audit.EventUserBlocked,
		fmt.Sprintf("Blocked by %s\nReason: %s", embeds.Tag(moderator), reason))
}

func (b *Bot) commandUnblock(ctx context.Context, interaction *discordgo.InteractionCreate, opts commandOptions) {
	target := opts.User("user")
	if target == nil {
		b.respond(interaction, "❌ Failed to unblock user.", true)
		return
	}
	tag := embeds.Tag(target)
	if err := b.api.UnblockUser(ctx, interaction.GuildID, target.ID); err != nil {
		if backend.IsNotFound(err) {
			b.respond(interaction, fmt.Sprintf("❌ User %s is not blocked.", tag), true)
			return
		}
		b.logger.Warn("unblock user failed", zap.Error(err), zap.String("user_id", target.ID))
		b.respond(interaction, "❌ Failed to unblock user.", true)
		return
	}
	b.respond(interaction, fmt.Sprintf("✅ User %s has been unblocked.", tag), true)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, target.ID, audit.EventUserUnblocked,
		"Unblocked by "+embeds.Tag(interactionUser(interaction)))
}

func (b *Bot) commandUrgency(ctx context.Context, interaction *discordgo.InteractionCreate, opts commandOptions) {
	level, err := backend.ParseUrgency(opts.String("level"))
	if err != nil {
		b.respond(interaction, "❌ Invalid urgency level. Valid levels are: Low, Medium, High, Urgent", true)
		return
	}
	thread, ok := b.threadForInteraction(ctx, interaction, msgNotThreads)
	if !ok {
		return
	}
	if !thread.IsOpen {
		b.respond(interaction, "❌ Cannot change urgency of a closed thread.", true)
		return
	}
	if _, err := b.api.UpdateUrgency(ctx, thread.GuildID, thread.ID, level); err != nil {
		b.logger.Warn("update urgency failed", zap.Error(err), zap.Int64("thread_id", thread.ID))
		b.respond(interaction, "❌ Failed to update thread urgency. Please try again.", true)
		return
	}
	moderator := embeds.Tag(interactionUser(interaction))
	b.respond(interaction, fmt.Sprintf("✅ Thread urgency updated to **%s**", level), true)
	if _, err := b.discord.SendChannel(thread.ChannelID(), &discordgo.MessageSend{
		Content: embeds.UrgencyChanged(level, moderator),
	}); err != nil {
		b.logger.Warn("urgency notice failed", zap.Error(err), zap.String("channel_id", thread.ChannelID()))
	}
	b.audit.Log(ctx, audit.LevelInfo, thread.GuildID, thread.UserID, audit.EventUrgencyChanged,
		fmt.Sprintf("%s → %s by %s", thread.Urgency, level, moderator))
}

func (b *Bot) commandMacro(ctx context.Context, interaction *discordgo.InteractionCreate, sub string, opts commandOptions) {
	guildID := interaction.GuildID
	name := strings.TrimSpace(opts.String("name"))

	switch sub {
	case "create":
		macro := backend.NewMacro{Name: name, Content: opts.String("content"), GuildID: guildID}
		if quick, ok := opts.Bool("quick_access"); ok {
			macro.QuickAccess = &quick
		}
		if _, err := b.api.CreateMacro(ctx, guildID, macro); err != nil {
			b.logger.Warn("create macro failed", zap.Error(err), zap.String("macro", name))
			b.respond(interaction, "❌ Failed to create macro. It may already exist.", true)
			return
		}
		b.respond(interaction, fmt.Sprintf("✅ Macro %q created successfully.", name), true)

	case "send":
		thread, ok := b.threadForInteraction(ctx, interaction, msgNotThread)
		if !ok {
			return
		}
		macro, err := b.api.GetMacro(ctx, guildID, name)
		if err != nil {
			if backend.IsNotFound(err) {
				b.respond(interaction, fmt.Sprintf("❌ Macro %q not found.", name), true)
				return
			}
			b.logger.Warn("get macro failed", zap.Error(err), zap.String("macro", name))
			b.respond(interaction, "❌ Failed to send macro.", true)
			return
		}
		user, err := b.sendMacro(ctx, thread, macro, interactionUser(interaction), "MACRO")
		if err != nil {
			b.logger.Warn("send macro failed", zap.Error(err), zap.String("macro", name))
			b.respond(interaction, "❌ Failed to send macro.", true)
			return
		}
		b.respondEmbed(interaction, embeds.Confirmation(user, macro.Content, fmt.Sprintf("Macro %q sent to", name)), false)

	case "delete":
		if err := b.api.DeleteMacro(ctx, guildID, name); err != nil {
			if backend.IsNotFound(err) {
				b.respond(interaction, fmt.Sprintf("❌ Macro %q not found.", name), true)
				return
			}
			b.logger.Warn("delete macro failed", zap.Error(err), zap.String("macro", name))
			b.respond(interaction, "❌ Failed to delete macro.", true)
			return
		}
		b.respond(interaction, fmt.Sprintf("✅ Macro %q deleted successfully.", name), true)

	case "list":
		macros, err := b.api.ListMacros(ctx, guildID)
		if err != nil {
			b.logger.Warn("list macros failed", zap.Error(err), zap.String("guild_id", guildID))
			b.respond(interaction, "❌ Failed to list macros.", true)
			return
		}
		if len(macros) == 0 {
			b.respond(interaction, "No macros found.", true)
			return
		}
		names := make([]string, 0, len(macros))
		for _, m := range macros {
			names = append(names, m.Name)
		}
		b.respond(interaction, "✅ Macros: "+strings.Join(names, ", "), true)

	case "edit":
		update := backend.MacroUpdate{Content: opts.String("content")}
		if quick, ok := opts.Bool("quick_access"); ok {
			update.QuickAccess = &quick
		}
		if _, err := b.api.UpdateMacro(ctx, guildID, name, update); err != nil {
			if backend.IsNotFound(err) {
				b.respond(interaction, fmt.Sprintf("❌ Macro %q not found.", name), true)
				return
			}
			b.logger.Warn("edit macro failed", zap.Error(err), zap.String("macro", name))
			b.respond(interaction, "❌ Failed to edit macro.", true)
			return
		}
		b.respond(interaction, fmt.Sprintf("✅ Macro %q edited successfully.", name), true)

	default:
		b.respond(interaction, "❌ Invalid subcommand.", true)
	}
}
