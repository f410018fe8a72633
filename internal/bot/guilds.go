package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// rememberGuilds marks the guilds listed in Ready as already registered, so
// the GuildCreate replay that follows a (re)connect is not mistaken for joins.
func (b *Bot) rememberGuilds(guilds []*discordgo.Guild) {
	b.guildsMu.Lock()
	defer b.guildsMu.Unlock()
	for _, guild := range guilds {
		if guild != nil {
			b.knownGuilds[guild.ID] = struct{}{}
		}
	}
}

func (b *Bot) handleGuildJoin(ctx context.Context, guild *discordgo.Guild) {
	if guild.Unavailable {
		return
	}
	b.guildsMu.Lock()
	if _, ok := b.knownGuilds[guild.ID]; ok {
		b.guildsMu.Unlock()
		return
	}
	b.knownGuilds[guild.ID] = struct{}{}
	b.guildsMu.Unlock()

	b.logger.Info("joined guild", zap.String("guild_id", guild.ID), zap.String("guild_name", guild.Name), zap.Int("members", guild.MemberCount))

	server, err := b.api.CreateServer(ctx, guild.ID, guild.Name)
	if err != nil {
		b.logger.Warn("register server failed", zap.Error(err), zap.String("guild_id", guild.ID))
		return
	}
	b.logger.Info("server registered", zap.String("guild_id", server.GuildID), zap.Int64("server_id", server.ID))
}

// handleGuildLeave forgets a guild the bot was removed from so a later
// re-invite registers it again. Unavailable guilds are outages, not removals.
func (b *Bot) handleGuildLeave(guild *discordgo.Guild) {
	if guild.Unavailable {
		return
	}
	b.guildsMu.Lock()
	delete(b.knownGuilds, guild.ID)
	b.guildsMu.Unlock()
	b.logger.Info("left guild", zap.String("guild_id", guild.ID))
}
