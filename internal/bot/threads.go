package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"
	"modmail-bridge/internal/pending"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) createThread(ctx context.Context, user *discordgo.User, guildID string, intro *embeds.IntroForm) (backend.Thread, error) {
	cfg, err := b.api.GetConfig(ctx, guildID)
	if err != nil {
		if backend.IsNotFound(err) {
			return backend.Thread{}, errNotConfigured
		}
		return backend.Thread{}, err
	}
	if cfg.ModmailCategoryID == "" {
		return backend.Thread{}, errNotConfigured
	}

	randomize := cfg.RandomizeNames || b.cfg.RandomizeNames
	channel, err := b.discord.CreateTextChannel(guildID, embeds.ChannelName(user, randomize), embeds.ChannelTopic(user), cfg.ModmailCategoryID)
	if err != nil {
		return backend.Thread{}, fmt.Errorf("create channel: %w", err)
	}

	urgency := backend.DefaultUrgency
	if intro != nil && intro.Urgency != "" {
		urgency = intro.Urgency
	}
	thread, err := b.api.CreateThread(ctx, guildID, backend.CreateThreadRequest{
		UserID:   user.ID,
		ThreadID: channel.ID,
		GuildID:  guildID,
		Urgency:  urgency,
	})
	if err != nil {
		if delErr := b.discord.DeleteChannel(channel.ID); delErr != nil {
			b.logger.Warn("orphan channel cleanup failed", zap.Error(delErr), zap.String("channel_id", channel.ID))
		}
		return backend.Thread{}, fmt.Errorf("register thread: %w", err)
	}
	if thread.GuildID == "" {
		thread.GuildID = guildID
	}
	if thread.ThreadID == "" {
		thread.ThreadID = channel.ID
	}

	var joinedAt time.Time
	if member, err := b.discord.Member(guildID, user.ID); err == nil && member != nil {
		joinedAt = member.JoinedAt
	}
	if _, err := b.discord.SendChannel(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.Welcome(user, joinedAt, cfg.WelcomeMessage, intro)},
	}); err != nil {
		b.logger.Warn("welcome embed failed", zap.Error(err), zap.String("channel_id", channel.ID))
	}

	details := fmt.Sprintf("Channel: <#%s>\nUrgency: %s", channel.ID, urgency)
	if intro != nil && intro.Subject != "" {
		details += "\nSubject: " + intro.Subject
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, user.ID, audit.EventThreadCreated, details)
	return thread, nil
}

// forward records each message in the backend and mirrors it into the thread
// channel, then confirms delivery to the user once.
func (b *Bot) forward(ctx context.Context, user *discordgo.User, thread backend.Thread, msgs []pending.PendingMessage) error {
	guildID := thread.GuildID
	var blockedWords []string
	if cfg, err := b.api.GetConfig(ctx, guildID); err == nil {
		blockedWords = cfg.BlockedWords
	}
	macros, err := b.api.ListMacros(ctx, guildID)
	if err != nil {
		b.logger.Warn("list macros failed", zap.Error(err), zap.String("guild_id", guildID))
	}
	buttons := embeds.QuickReplyButtons(macros)

	for _, msg := range msgs {
		if _, err := b.api.AddMessage(ctx, guildID, thread.ID, backend.NewMessage{
			AuthorID:    user.ID,
			AuthorTag:   embeds.Tag(user),
			Content:     msg.Content,
			Attachments: msg.Attachments,
			GuildID:     guildID,
		}); err != nil {
			return fmt.Errorf("record message: %w", err)
		}

		embed := embeds.UserMessage(user, msg.Content)
		embeds.Attachments(embed, msg.Attachments)
		embeds.Links(embed, msg.Content)
		embeds.FlaggedWords(embed, msg.Content, blockedWords)
		if _, err := b.discord.SendChannel(thread.ChannelID(), &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: buttons,
		}); err != nil {
			return fmt.Errorf("post to thread channel: %w", err)
		}
	}

	if _, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.UserConfirmation()},
	}); err != nil {
		b.logger.Warn("user confirmation failed", zap.Error(err), zap.String("user_id", user.ID))
	}
	return nil
}

// sendMacro delivers a macro to the thread's user and records it with a tag
// such as "[MACRO: name]".
func (b *Bot) sendMacro(ctx context.Context, thread backend.Thread, macro backend.Macro, moderator *discordgo.User, tag string) (*discordgo.User, error) {
	user, err := b.discord.User(thread.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if _, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.ModeratorMessage(macro.Content)},
	}); err != nil {
		return nil, fmt.Errorf("dm macro: %w", err)
	}
	if _, err := b.api.AddMessage(ctx, thread.GuildID, thread.ID, backend.NewMessage{
		AuthorID:  moderator.ID,
		AuthorTag: embeds.Tag(moderator),
		Content:   fmt.Sprintf("[%s: %s] %s", tag, macro.Name, macro.Content),
		GuildID:   thread.GuildID,
	}); err != nil {
		return nil, fmt.Errorf("record macro: %w", err)
	}
	return user, nil
}

func (b *Bot) threadURL(threadID int64) string {
	if b.cfg.FrontendURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/thread/%d", strings.TrimRight(b.cfg.FrontendURL, "/"), threadID)
}
