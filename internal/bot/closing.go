package bot

import (
	"context"
	"fmt"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"
	"modmail-bridge/internal/webhook"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var _ webhook.Notifier = (*Bot)(nil)

// ThreadClosed replays the /close announcements for a thread closed from the
// dashboard.
func (b *Bot) ThreadClosed(ctx context.Context, event webhook.ThreadClosedEvent) error {
	if event.Thread.UserID == "" {
		return fmt.Errorf("thread %d has no user", event.Thread.ID)
	}
	thread := event.Thread
	if thread.GuildID == "" {
		thread.GuildID = event.GuildID
	}
	b.announceClosure(ctx, thread, event.ClosedByTag)
	b.audit.Log(ctx, audit.LevelInfo, thread.GuildID, thread.UserID, audit.EventThreadClosed, "Closed from dashboard by "+event.ClosedByTag)
	b.logger.Info("thread closed via dashboard", zap.Int64("thread_id", thread.ID), zap.String("guild_id", thread.GuildID), zap.String("closed_by", event.ClosedByTag))
	return nil
}

// announceClosure posts to the log channel and tells the user. Each step
// fails independently.
func (b *Bot) announceClosure(ctx context.Context, thread backend.Thread, closedByTag string) {
	user, userErr := b.discord.User(thread.UserID)
	if userErr != nil {
		b.logger.Warn("fetch closed thread user failed", zap.Error(userErr), zap.String("user_id", thread.UserID))
	}

	if channelID := b.logChannel(ctx, thread.GuildID); channelID != "" {
		embed := embeds.ClosureLog(user, thread.UserID, closedByTag, b.threadURL(thread.ID))
		if _, err := b.discord.SendChannel(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
			b.logger.Warn("closure log failed", zap.Error(err), zap.String("channel_id", channelID))
		}
	}

	if _, err := b.discord.SendDM(thread.UserID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embeds.UserClosure()},
	}); err != nil {
		b.logger.Warn("closure dm failed", zap.Error(err), zap.String("user_id", thread.UserID))
	}
}

func (b *Bot) notifyAudit(ctx context.Context, entry audit.Entry) {
	switch entry.Event {
	case audit.EventThreadCreated, audit.EventUserBlocked, audit.EventUserUnblocked:
	default:
		return
	}
	if entry.GuildID == "" {
		return
	}
	channelID := b.logChannel(ctx, entry.GuildID)
	if channelID == "" {
		return
	}
	embed := embeds.AuditEvent(entry.Event, entry.UserID, entry.Details)
	if _, err := b.discord.SendChannel(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		b.logger.Warn("audit notify failed", zap.Error(err), zap.String("channel_id", channelID), zap.String("event", entry.Event))
	}
}
