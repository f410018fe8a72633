package embeds

import (
	"regexp"
	"strings"

	"modmail-bridge/internal/backend"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// Custom-id actions. The id format is "<action>:<argument>".
const (
	ActionQuickReply   = "quick_reply"
	ActionIntroStart   = "intro_start"
	ActionIntroCancel  = "intro_cancel"
	ActionIntroForm    = "intro_form"
	ActionServerSelect = "server_select"

	FieldSubject     = "subject"
	FieldDescription = "description"
	FieldUrgency     = "urgency"

	maxCustomID       = 100
	maxButtonsPerRow  = 5
	maxRows           = 5
	maxSelectOptions  = 25
	maxChannelNameLen = 100
	maxModalTitle     = 45
)

func CustomID(action, arg string) string {
	return action + ":" + arg
}

func ParseCustomID(id string) (action, arg string) {
	action, arg, _ = strings.Cut(id, ":")
	return action, arg
}

// QuickReplyButtons lays quick-access macros out as rows of buttons under a
// forwarded user message.
func QuickReplyButtons(macros []backend.Macro) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for _, macro := range macros {
		if !macro.QuickAccess {
			continue
		}
		id := CustomID(ActionQuickReply, macro.Name)
		if len(id) > maxCustomID {
			continue
		}
		row = append(row, discordgo.Button{
			Label:    truncate(macro.Name, 80),
			Style:    discordgo.SecondaryButton,
			CustomID: id,
		})
		if len(row) == maxButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
			if len(rows) == maxRows {
				return rows
			}
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func IntroButtons(token string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Start Conversation",
				Style:    discordgo.PrimaryButton,
				CustomID: CustomID(ActionIntroStart, token),
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.DangerButton,
				CustomID: CustomID(ActionIntroCancel, token),
			},
		}},
	}
}

func IntroModal(token, guildName string) *discordgo.InteractionResponseData {
	title := "Contact the moderators"
	if guildName != "" {
		title = truncate("Contact "+guildName, maxModalTitle)
	}
	return &discordgo.InteractionResponseData{
		CustomID: CustomID(ActionIntroForm, token),
		Title:    title,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  FieldSubject,
					Label:     "Subject",
					Style:     discordgo.TextInputShort,
					Required:  true,
					MaxLength: 100,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  FieldDescription,
					Label:     "Describe your issue",
					Style:     discordgo.TextInputParagraph,
					Required:  true,
					MaxLength: 1000,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldUrgency,
					Label:       "Urgency",
					Style:       discordgo.TextInputShort,
					Placeholder: "Low, Medium, High or Urgent",
					Required:    false,
					MaxLength:   10,
				},
			}},
		},
	}
}

type GuildOption struct {
	ID   string
	Name string
}

// ServerSelect builds the guild picker. existing selects between open
// threads, otherwise the user is choosing where to start a new one.
func ServerSelect(token string, existing bool, guilds []GuildOption) *discordgo.MessageSend {
	title := "Choose Server to Contact"
	description := "You are a member of multiple servers with this modmail bot. Which server would you like to contact?"
	optionDescription := "Start new conversation"
	if existing {
		title = "Continue Existing Conversation"
		description = "You have active conversations in multiple servers. Which one would you like to continue?"
		optionDescription = "Continue existing conversation"
	}

	options := make([]discordgo.SelectMenuOption, 0, len(guilds))
	for i, guild := range guilds {
		if i == maxSelectOptions {
			break
		}
		label := guild.Name
		if label == "" {
			label = "Server " + guild.ID
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(label, 100),
			Value:       guild.ID,
			Description: optionDescription,
		})
	}

	return &discordgo.MessageSend{
		Content: "**" + title + "**\n" + description,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    CustomID(ActionServerSelect, token),
					Placeholder: "Choose a server to contact...",
					Options:     options,
				},
			}},
		},
	}
}

// ModalValue finds a text input value in a submitted modal.
func ModalValue(components []discordgo.MessageComponent, id string) string {
	for _, component := range components {
		var children []discordgo.MessageComponent
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			children = c.Components
		case discordgo.ActionsRow:
			children = c.Components
		case *discordgo.TextInput:
			if c.CustomID == id {
				return c.Value
			}
		case discordgo.TextInput:
			if c.CustomID == id {
				return c.Value
			}
		}
		if value := ModalValue(children, id); value != "" {
			return value
		}
	}
	return ""
}

var channelNameInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// ChannelName derives the thread channel name. Randomized names hide the
// user's identity from anyone browsing the category.
func ChannelName(user *discordgo.User, randomize bool) string {
	if randomize || user == nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}
	base := user.Username
	if user.Discriminator != "" && user.Discriminator != "0" {
		base += "-" + user.Discriminator
	}
	name := channelNameInvalid.ReplaceAllString(strings.ToLower(base), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "modmail-" + user.ID
	}
	if len(name) > maxChannelNameLen {
		name = name[:maxChannelNameLen]
	}
	return name
}

func ChannelTopic(user *discordgo.User) string {
	return "Modmail thread for " + Tag(user) + " (" + user.ID + ")"
}
