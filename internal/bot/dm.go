package bot

import (
	"context"
	"errors"
	"sync"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"
	"modmail-bridge/internal/pending"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	msgNoServers     = "❌ You are not a member of any servers that have this modmail bot configured. Please join a server first."
	msgDMFailed      = "❌ There was an error processing your message. Please try again later."
	msgNotConfigured = "❌ This server has not configured modmail properly. Please contact an administrator."
	msgCreateFailed  = "❌ Failed to create modmail thread. Please try again later."
)

type guildRef struct {
	ID   string
	Name string
}

func (b *Bot) handleDirectMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return
	}
	user := m.Author
	if !b.flood.Allow(user.ID, b.now()) {
		b.logger.Warn("dm dropped by flood guard", zap.String("user_id", user.ID))
		b.audit.Log(ctx, audit.LevelWarn, "", user.ID, audit.EventFloodDropped, "")
		return
	}

	msg := pending.PendingMessage{
		Content:     m.Content,
		Attachments: embeds.ProcessAttachments(m.Attachments),
		ChannelID:   m.ChannelID,
		MessageID:   m.ID,
	}
	if err := b.routeDirectMessage(ctx, user, msg); err != nil {
		b.logger.Warn("dm routing failed", zap.Error(err), zap.String("user_id", user.ID))
		b.sendDMText(user.ID, msgDMFailed)
	}
}

func (b *Bot) routeDirectMessage(ctx context.Context, user *discordgo.User, msg pending.PendingMessage) error {
	guilds, err := b.sharedGuilds(ctx, user.ID)
	if err != nil {
		return err
	}

	switch len(guilds) {
	case 0:
		b.sendDMText(user.ID, msgNoServers)
		return nil
	case 1:
		return b.handleSingleGuild(ctx, user, guilds[0].ID, []pending.PendingMessage{msg})
	}

	active, err := b.openThreads(ctx, user.ID, guilds)
	if err != nil {
		return err
	}
	switch len(active) {
	case 1:
		return b.forward(ctx, user, active[0].thread, []pending.PendingMessage{msg})
	case 0:
		return b.showServerSelect(ctx, user, pending.KindSelectNew, guilds, msg)
	default:
		choices := make([]guildRef, 0, len(active))
		for _, a := range active {
			choices = append(choices, a.guild)
		}
		return b.showServerSelect(ctx, user, pending.KindSelectExisting, choices, msg)
	}
}

// sharedGuilds returns the guilds the user is in that the backend knows and
// that have a modmail configuration.
func (b *Bot) sharedGuilds(ctx context.Context, userID string) ([]guildRef, error) {
	var requests []backend.ValidateGuildRequest
	names := make(map[string]string)
	for _, guild := range b.discord.Guilds() {
		if _, err := b.discord.Member(guild.ID, userID); err != nil {
			continue
		}
		names[guild.ID] = guild.Name
		requests = append(requests, backend.ValidateGuildRequest{GuildID: guild.ID, GuildName: guild.Name})
	}
	if len(requests) == 0 {
		return nil, nil
	}

	validated, err := b.api.ValidateGuilds(ctx, requests)
	if err != nil {
		return nil, err
	}
	var guilds []guildRef
	for _, v := range validated {
		if !v.HasBot || !v.HasConfig {
			continue
		}
		name := v.GuildName
		if name == "" {
			name = names[v.GuildID]
		}
		guilds = append(guilds, guildRef{ID: v.GuildID, Name: name})
	}
	return guilds, nil
}

type activeThread struct {
	guild  guildRef
	thread backend.Thread
}

func (b *Bot) openThreads(ctx context.Context, userID string, guilds []guildRef) ([]activeThread, error) {
	var (
		mu     sync.Mutex
		active []activeThread
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, guild := range guilds {
		guild := guild
		g.Go(func() error {
			thread, err := b.api.FindOpenThreadByUser(gctx, guild.ID, userID)
			if err != nil {
				if backend.IsNotFound(err) {
					return nil
				}
				return err
			}
			if thread.GuildID == "" {
				thread.GuildID = guild.ID
			}
			mu.Lock()
			active = append(active, activeThread{guild: guild, thread: thread})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return active, nil
}

func (b *Bot) showServerSelect(ctx context.Context, user *discordgo.User, kind pending.Kind, guilds []guildRef, msg pending.PendingMessage) error {
	entry := pending.NewEntry(kind, user.ID, msg, b.now(), b.cfg.PendingTTL())
	options := make([]embeds.GuildOption, 0, len(guilds))
	for _, guild := range guilds {
		entry.GuildIDs = append(entry.GuildIDs, guild.ID)
		options = append(options, embeds.GuildOption{ID: guild.ID, Name: guild.Name})
	}
	if err := b.pending.Put(ctx, entry); err != nil {
		return err
	}
	if _, err := b.discord.SendDM(user.ID, embeds.ServerSelect(entry.Token, kind == pending.KindSelectExisting, options)); err != nil {
		_ = b.pending.Delete(ctx, entry.Token)
		return err
	}
	return nil
}

// handleSingleGuild continues an open thread or starts the intro for a new one.
// Blocked users are dropped without any reply.
func (b *Bot) handleSingleGuild(ctx context.Context, user *discordgo.User, guildID string, msgs []pending.PendingMessage) error {
	blocked, err := b.api.IsBlocked(ctx, guildID, user.ID)
	if err != nil {
		return err
	}
	if blocked {
		b.logger.Info("blocked user dm ignored", zap.String("guild_id", guildID), zap.String("user_id", user.ID))
		return nil
	}

	thread, err := b.api.FindOpenThreadByUser(ctx, guildID, user.ID)
	if err == nil {
		if thread.GuildID == "" {
			thread.GuildID = guildID
		}
		return b.forward(ctx, user, thread, msgs)
	}
	if !backend.IsNotFound(err) {
		return err
	}

	if existing, err := b.pending.FindByUser(ctx, pending.KindIntro, user.ID); err == nil && existing.GuildID == guildID {
		for _, msg := range msgs {
			if err := b.pending.Append(ctx, existing.Token, msg); err != nil {
				return err
			}
		}
		return nil
	}

	return b.promptIntro(ctx, user, guildID, msgs)
}

func (b *Bot) promptIntro(ctx context.Context, user *discordgo.User, guildID string, msgs []pending.PendingMessage) error {
	entry := pending.NewEntry(pending.KindIntro, user.ID, pending.PendingMessage{}, b.now(), b.cfg.PendingTTL())
	entry.GuildID = guildID
	entry.Messages = msgs
	if err := b.pending.Put(ctx, entry); err != nil {
		return err
	}

	_, err := b.discord.SendDM(user.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embeds.IntroPrompt(b.guildName(guildID))},
		Components: embeds.IntroButtons(entry.Token),
	})
	if err == nil {
		return nil
	}

	b.logger.Warn("intro prompt failed, opening thread directly", zap.Error(err), zap.String("user_id", user.ID), zap.String("guild_id", guildID))
	_ = b.pending.Delete(ctx, entry.Token)
	thread, err := b.openThread(ctx, user, guildID, nil)
	if err != nil {
		return nil
	}
	return b.forward(ctx, user, thread, msgs)
}

// openThread creates the thread and reports configuration problems to the
// user directly. A non-nil error means the user has already been told.
func (b *Bot) openThread(ctx context.Context, user *discordgo.User, guildID string, intro *embeds.IntroForm) (backend.Thread, error) {
	thread, err := b.createThread(ctx, user, guildID, intro)
	if err == nil {
		return thread, nil
	}
	if errors.Is(err, errNotConfigured) {
		b.sendDMText(user.ID, msgNotConfigured)
	} else {
		b.logger.Warn("create thread failed", zap.Error(err), zap.String("guild_id", guildID), zap.String("user_id", user.ID))
		b.sendDMText(user.ID, msgCreateFailed)
	}
	return backend.Thread{}, err
}

func (b *Bot) guildName(guildID string) string {
	guild, err := b.discord.Guild(guildID)
	if err != nil || guild == nil {
		return ""
	}
	return guild.Name
}

func (b *Bot) sendDMText(userID, content string) {
	if _, err := b.discord.SendDM(userID, &discordgo.MessageSend{Content: content}); err != nil {
		b.logger.Warn("dm send failed", zap.Error(err), zap.String("user_id", userID))
	}
}
