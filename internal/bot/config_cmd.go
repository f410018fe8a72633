package bot

import (
	"context"
	"strconv"
	"strings"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/embeds"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	settingCategory    = "modmail-category"
	settingLogChannel  = "log-channel"
	settingRandomize   = "randomize-names"
	settingAutoClose   = "auto-close-hours"
	settingWelcome     = "welcome-message"
	listModeratorRole  = "moderator-role"
	listBlockedWord    = "blocked-word"
	msgConfigFailed    = "❌ Failed to execute config command."
	msgInvalidSetting  = "❌ Invalid setting. Valid settings: modmail-category, log-channel, randomize-names, auto-close-hours, welcome-message"
	msgInvalidListType = "❌ Invalid type. Valid types: moderator-role, blocked-word"
)

func isAdministrator(interaction *discordgo.InteractionCreate) bool {
	return interaction.Member != nil && interaction.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func (b *Bot) commandConfig(ctx context.Context, interaction *discordgo.InteractionCreate, sub string, opts commandOptions) {
	if !isAdministrator(interaction) {
		b.respond(interaction, "❌ You need Administrator permissions to use this command.", true)
		return
	}

	var (
		reply string
		err   error
	)
	switch sub {
	case "show":
		reply, err = b.configShow(ctx, interaction.GuildID)
	case "set":
		reply, err = b.configSet(ctx, interaction.GuildID, opts)
	case "add":
		reply, err = b.configList(ctx, interaction.GuildID, opts, true)
	case "remove":
		reply, err = b.configList(ctx, interaction.GuildID, opts, false)
	case "reset":
		if _, err = b.api.ResetConfig(ctx, interaction.GuildID); err == nil {
			reply = "✅ Configuration reset to defaults."
		}
	default:
		reply = "❌ Invalid subcommand."
	}
	if err != nil {
		b.logger.Warn("config command failed", zap.Error(err), zap.String("guild_id", interaction.GuildID), zap.String("subcommand", sub))
		reply = msgConfigFailed
	}
	b.respond(interaction, reply, true)
}

func (b *Bot) configShow(ctx context.Context, guildID string) (string, error) {
	cfg, err := b.api.GetConfig(ctx, guildID)
	if err == nil {
		return embeds.ConfigSummary(cfg), nil
	}
	if !backend.IsNotFound(err) {
		return "", err
	}
	if _, err := b.api.CreateConfig(ctx, guildID, backend.ConfigUpdate{}); err != nil {
		return "", err
	}
	return "✅ Created default configuration for this server. Use `/config show` to view settings.", nil
}

func (b *Bot) configSet(ctx context.Context, guildID string, opts commandOptions) (string, error) {
	setting := opts.String("setting")
	value := strings.TrimSpace(opts.String("value"))
	var update backend.ConfigUpdate

	switch setting {
	case settingCategory:
		channel := opts.Channel("channel")
		if channel == nil || channel.Type != discordgo.ChannelTypeGuildCategory {
			return "❌ Please provide a valid category channel.", nil
		}
		update.ModmailCategoryID = &channel.ID
	case settingLogChannel:
		channel := opts.Channel("channel")
		if channel == nil || channel.Type != discordgo.ChannelTypeGuildText {
			return "❌ Please provide a valid text channel.", nil
		}
		update.LogChannelID = &channel.ID
	case settingRandomize:
		randomize := strings.EqualFold(value, "true")
		update.RandomizeNames = &randomize
	case settingAutoClose:
		hours, err := strconv.Atoi(value)
		if err != nil || hours < 1 {
			return "❌ Please provide a valid number of hours (minimum 1).", nil
		}
		update.AutoCloseHours = &hours
	case settingWelcome:
		update.WelcomeMessage = &value
	default:
		return msgInvalidSetting, nil
	}

	if err := b.saveConfig(ctx, guildID, update); err != nil {
		return "", err
	}
	return "✅ Updated " + setting + " successfully.", nil
}

// configList adds or removes a moderator role or blocked word.
func (b *Bot) configList(ctx context.Context, guildID string, opts commandOptions, add bool) (string, error) {
	listType := opts.String("type")
	if listType != listModeratorRole && listType != listBlockedWord {
		return msgInvalidListType, nil
	}

	var item string
	if listType == listModeratorRole {
		role := opts.Role("role")
		if role == nil {
			return "❌ Please provide a valid role.", nil
		}
		item = role.ID
	} else {
		item = strings.ToLower(strings.TrimSpace(opts.String("value")))
		if item == "" {
			return "❌ Please provide a valid word.", nil
		}
	}

	cfg, err := b.api.GetConfig(ctx, guildID)
	if err != nil && !backend.IsNotFound(err) {
		return "", err
	}
	current := cfg.BlockedWords
	if listType == listModeratorRole {
		current = cfg.ModeratorRoleIDs
	}
	next := editList(current, item, add)

	var update backend.ConfigUpdate
	if listType == listModeratorRole {
		update.ModeratorRoleIDs = &next
	} else {
		update.BlockedWords = &next
	}
	if err := b.saveConfig(ctx, guildID, update); err != nil {
		return "", err
	}
	if add {
		return "✅ Added " + listType + " successfully.", nil
	}
	return "✅ Removed " + listType + " successfully.", nil
}

// saveConfig updates the guild config, creating it first when the guild has
// none yet.
func (b *Bot) saveConfig(ctx context.Context, guildID string, update backend.ConfigUpdate) error {
	_, err := b.api.UpdateConfig(ctx, guildID, update)
	if err == nil || !backend.IsNotFound(err) {
		return err
	}
	_, err = b.api.CreateConfig(ctx, guildID, update)
	return err
}

func editList(list []string, item string, add bool) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, v := range list {
		if v == item {
			found = true
			if !add {
				continue
			}
		}
		out = append(out, v)
	}
	if add && !found {
		out = append(out, item)
	}
	return out
}
