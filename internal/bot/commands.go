package bot

import "github.com/bwmarrin/discordgo"

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	dmDisabled            = false
)

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return out
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	quickAccess := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "quick_access",
		Description: "Show as a quick reply button under user messages",
	}
	level := stringOption("level", "The new urgency level", true)
	level.Choices = choices("Low", "Medium", "High", "Urgent")

	setting := stringOption("setting", "The setting to change", true)
	setting.Choices = choices("modmail-category", "log-channel", "randomize-names", "auto-close-hours", "welcome-message")
	listType := stringOption("type", "moderator-role or blocked-word", true)
	listType.Choices = choices("moderator-role", "blocked-word")
	channel := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "Channel (for modmail-category and log-channel)",
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildText},
	}
	role := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "Role (for moderator-role)",
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         "message",
			Description:  "Send a message to a user",
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to message"),
				stringOption("message", "The message to send", true),
			},
		},
		{Name: "close", Description: "Close the current thread", DMPermission: &dmDisabled},
		{Name: "delete", Description: "Delete the current thread", DMPermission: &dmDisabled},
		{
			Name:         "note",
			Description:  "Add an internal note to the current thread",
			DMPermission: &dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{stringOption("content", "The note content", true)},
		},
		{
			Name:         "block",
			Description:  "Block a user from using modmail",
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("The user to block"),
				stringOption("reason", "Reason for blocking", false),
			},
		},
		{
			Name:         "unblock",
			Description:  "Unblock a user",
			DMPermission: &dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{userOption("The user to unblock")},
		},
		{
			Name:         "urgency",
			Description:  "Set the urgency of the current thread",
			DMPermission: &dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{level},
		},
		{
			Name:         "macro",
			Description:  "Manage macros",
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("create", "Create a new macro",
					stringOption("name", "The name of the macro", true),
					stringOption("content", "The content of the macro", true),
					quickAccess),
				subcommand("send", "Send a macro", stringOption("name", "The name of the macro", true)),
				subcommand("delete", "Delete a macro", stringOption("name", "The name of the macro to delete", true)),
				subcommand("list", "List all macros"),
				subcommand("edit", "Edit a macro",
					stringOption("name", "The name of the macro", true),
					stringOption("content", "The new content of the macro", true),
					quickAccess),
			},
		},
		{
			Name:                     "config",
			Description:              "Configure modmail for this server",
			DMPermission:             &dmDisabled,
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("show", "Show the current configuration"),
				subcommand("set", "Set a configuration value", setting, stringOption("value", "Value for the setting", true), channel),
				subcommand("add", "Add a moderator role or blocked word", listType, stringOption("value", "Value to add", true), role),
				subcommand("remove", "Remove a moderator role or blocked word", listType, stringOption("value", "Value to remove", true), role),
				subcommand("reset", "Reset all configuration to defaults"),
			},
		},
	}
}

type commandSync struct {
	edits   map[string]*discordgo.ApplicationCommand
	creates []*discordgo.ApplicationCommand
	deletes []*discordgo.ApplicationCommand
}

// planCommandSync matches commands by name: existing ones are edited, missing
// ones created and unknown ones deleted.
func planCommandSync(existing, desired []*discordgo.ApplicationCommand) commandSync {
	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	plan := commandSync{edits: make(map[string]*discordgo.ApplicationCommand)}
	wanted := make(map[string]struct{})
	for _, cmd := range desired {
		wanted[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			plan.edits[current.ID] = cmd
			continue
		}
		plan.creates = append(plan.creates, cmd)
	}
	for _, cmd := range existing {
		if _, ok := wanted[cmd.Name]; !ok {
			plan.deletes = append(plan.deletes, cmd)
		}
	}
	return plan
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.cfg.ClientID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	plan := planCommandSync(existing, commands)
	for id, cmd := range plan.edits {
		if _, err := b.session.ApplicationCommandEdit(appID, "", id, cmd); err != nil {
			return err
		}
	}
	for _, cmd := range plan.creates {
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}
	for _, cmd := range plan.deletes {
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
