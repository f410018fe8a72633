package bot

import "github.com/bwmarrin/discordgo"

// commandOptions indexes the options of a command or subcommand by name.
type commandOptions struct {
	values   map[string]*discordgo.ApplicationCommandInteractionDataOption
	resolved *discordgo.ApplicationCommandInteractionDataResolved
}

func newCommandOptions(options []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) commandOptions {
	values := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		if opt != nil {
			values[opt.Name] = opt
		}
	}
	return commandOptions{values: values, resolved: resolved}
}

// splitSubcommand splits off the first option when it is a subcommand.
func splitSubcommand(data discordgo.ApplicationCommandInteractionData) (string, commandOptions) {
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub := data.Options[0]
		return sub.Name, newCommandOptions(sub.Options, data.Resolved)
	}
	return "", newCommandOptions(data.Options, data.Resolved)
}

func (o commandOptions) String(name string) string {
	opt, ok := o.values[name]
	if !ok {
		return ""
	}
	v, _ := opt.Value.(string)
	return v
}

func (o commandOptions) Bool(name string) (bool, bool) {
	opt, ok := o.values[name]
	if !ok {
		return false, false
	}
	v, ok := opt.Value.(bool)
	return v, ok
}

// ID returns the raw snowflake of a user, channel or role option.
func (o commandOptions) ID(name string) string {
	return o.String(name)
}

func (o commandOptions) User(name string) *discordgo.User {
	id := o.ID(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if user, ok := o.resolved.Users[id]; ok && user != nil {
			return user
		}
	}
	return &discordgo.User{ID: id}
}

func (o commandOptions) Channel(name string) *discordgo.Channel {
	id := o.ID(name)
	if id == "" || o.resolved == nil {
		return nil
	}
	return o.resolved.Channels[id]
}

func (o commandOptions) Role(name string) *discordgo.Role {
	id := o.ID(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if role, ok := o.resolved.Roles[id]; ok && role != nil {
			return role
		}
	}
	return &discordgo.Role{ID: id}
}
