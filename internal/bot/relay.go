package bot

import (
	"context"
	"fmt"
	"strings"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"
	"modmail-bridge/internal/webhook"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	reactionDelivered = "✅"
	reactionFailed    = "❌"
)

// handleChannelMessage relays a moderator's message in a thread channel to
// the user and marks the outcome with a reaction.
func (b *Bot) handleChannelMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	thread, err := b.api.FindThreadByChannel(ctx, m.GuildID, m.ChannelID)
	if err != nil {
		if !backend.IsNotFound(err) {
			b.logger.Warn("thread lookup failed", zap.Error(err), zap.String("guild_id", m.GuildID), zap.String("channel_id", m.ChannelID))
		}
		return
	}
	if !thread.IsOpen {
		return
	}
	if strings.HasPrefix(m.Content, "/") {
		return
	}
	if thread.GuildID == "" {
		thread.GuildID = m.GuildID
	}

	reaction := reactionDelivered
	if err := b.relay(ctx, thread, m); err != nil {
		b.logger.Warn("relay to user failed", zap.Error(err), zap.String("user_id", thread.UserID), zap.Int64("thread_id", thread.ID))
		reaction = reactionFailed
	}
	if err := b.discord.React(m.ChannelID, m.ID, reaction); err != nil {
		b.logger.Warn("reaction failed", zap.Error(err), zap.String("channel_id", m.ChannelID))
	}
}

func (b *Bot) relay(ctx context.Context, thread backend.Thread, m *discordgo.Message) error {
	user, err := b.discord.User(thread.UserID)
	if err != nil {
		return err
	}
	attachments := embeds.ProcessAttachments(m.Attachments)
	embed := embeds.ModeratorMessage(m.Content)
	embeds.Attachments(embed, attachments)
	if _, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		return err
	}
	_, err = b.api.AddMessage(ctx, thread.GuildID, thread.ID, backend.NewMessage{
		AuthorID:    m.Author.ID,
		AuthorTag:   embeds.Tag(m.Author),
		Content:     m.Content,
		Attachments: attachments,
		GuildID:     thread.GuildID,
	})
	return err
}

// ThreadMessage delivers a reply written on the dashboard. The dashboard
// stores the message itself once delivery succeeds.
func (b *Bot) ThreadMessage(ctx context.Context, event webhook.ThreadMessageEvent) error {
	thread := event.Thread
	if thread.UserID == "" {
		return fmt.Errorf("thread %d has no user", thread.ID)
	}
	if thread.GuildID == "" {
		thread.GuildID = event.GuildID
	}
	user, err := b.discord.User(thread.UserID)
	if err != nil {
		return fmt.Errorf("fetch user %s: %w", thread.UserID, err)
	}
	if _, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.ModeratorMessage(event.Content)},
	}); err != nil {
		return fmt.Errorf("dm user %s: %w", user.ID, err)
	}

	if channelID := thread.ChannelID(); channelID != "" {
		prefix := "Dashboard reply from " + event.AuthorTag + " sent to"
		if _, err := b.discord.SendChannel(channelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embeds.Confirmation(user, event.Content, prefix)},
		}); err != nil {
			b.logger.Warn("dashboard reply echo failed", zap.Error(err), zap.String("channel_id", channelID))
		}
	}
	b.logger.Info("thread reply via dashboard", zap.Int64("thread_id", thread.ID), zap.String("guild_id", thread.GuildID), zap.String("author", event.AuthorTag))
	return nil
}
