package embeds

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorInfo    = 0x0099ff
	ColorSuccess = 0x00ff00
	ColorDanger  = 0xff0000
	ColorWarning = 0xf59e0b

	maxDescription = 4096
	maxFieldValue  = 1024

	noTextContent = "*No text content*"
)

// IntroForm is what a user fills in before their first thread is opened.
type IntroForm struct {
	Subject     string
	Description string
	Urgency     backend.Urgency
}

// Tag renders a user the way Discord shows them: legacy name#1234 or the
// bare username for migrated accounts.
func Tag(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func avatar(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	return u.AvatarURL("")
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit - len("…")
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "…"
}

func dateOrUnknown(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format("2006-01-02")
}

// Welcome opens a new thread channel. The guild's welcome message, when set,
// is shown to moderators above the intro answers.
func Welcome(user *discordgo.User, joinedAt time.Time, welcomeMessage string, intro *IntroForm) *discordgo.MessageEmbed {
	created := time.Time{}
	if user != nil {
		if ts, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
			created = ts
		}
	}
	userID := ""
	if user != nil {
		userID = user.ID
	}

	embed := &discordgo.MessageEmbed{
		Color: ColorInfo,
		Title: "New Modmail Thread",
		Description: fmt.Sprintf("**User:** %s (%s)\n**Account Created:** %s\n**User Joined:** %s",
			Tag(user), userID, dateOrUnknown(created), dateOrUnknown(joinedAt)),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: avatar(user)},
		Timestamp: timestamp(),
	}
	if strings.TrimSpace(welcomeMessage) != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Welcome Message", Value: truncate(welcomeMessage, maxFieldValue)})
	}
	if intro != nil {
		urgency := intro.Urgency
		if urgency == "" {
			urgency = backend.DefaultUrgency
		}
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Subject", Value: truncate(orDash(intro.Subject), maxFieldValue)},
			&discordgo.MessageEmbedField{Name: "Description", Value: truncate(orDash(intro.Description), maxFieldValue)},
			&discordgo.MessageEmbedField{Name: "Urgency", Value: string(urgency), Inline: true},
		)
	}
	return embed
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func ModeratorMessage(content string) *discordgo.MessageEmbed {
	if content == "" {
		content = noTextContent
	}
	return &discordgo.MessageEmbed{
		Color:       ColorInfo,
		Title:       "Message from Moderators",
		Description: truncate(content, maxDescription),
		Timestamp:   timestamp(),
	}
}

func UserMessage(user *discordgo.User, content string) *discordgo.MessageEmbed {
	if content == "" {
		content = noTextContent
	}
	return &discordgo.MessageEmbed{
		Color:       ColorInfo,
		Author:      &discordgo.MessageEmbedAuthor{Name: Tag(user), IconURL: avatar(user)},
		Description: truncate(content, maxDescription),
		Timestamp:   timestamp(),
	}
}

// Confirmation echoes a delivered moderator message back into the thread.
func Confirmation(user *discordgo.User, content, prefix string) *discordgo.MessageEmbed {
	if prefix == "" {
		prefix = "Message sent to"
	}
	return &discordgo.MessageEmbed{
		Color:       ColorSuccess,
		Author:      &discordgo.MessageEmbedAuthor{Name: Tag(user), IconURL: avatar(user)},
		Description: truncate(fmt.Sprintf("**%s %s:**\n%s", prefix, Tag(user), content), maxDescription),
		Timestamp:   timestamp(),
	}
}

func ThreadClosed(closedByTag string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ColorDanger,
		Title:       "Thread Closed",
		Description: "This thread has been closed by " + closedByTag,
		Timestamp:   timestamp(),
	}
}

func ClosureLog(user *discordgo.User, userID, closedByTag, threadURL string) *discordgo.MessageEmbed {
	tag := userID
	if user != nil {
		tag = Tag(user)
	}
	description := fmt.Sprintf("**User:** %s (%s)\n**Closed by:** %s", tag, userID, closedByTag)
	if threadURL != "" {
		description += fmt.Sprintf("\n**Thread:** [View Thread](%s)", threadURL)
	}
	embed := &discordgo.MessageEmbed{
		Color:       ColorDanger,
		Title:       "Thread Closed",
		Description: description,
		Timestamp:   timestamp(),
	}
	if url := avatar(user); url != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
	}
	return embed
}

func UserClosure() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ColorDanger,
		Title:       "Modmail Thread Closed",
		Description: "Your modmail thread has been closed by the moderators.",
		Timestamp:   timestamp(),
	}
}

func UserConfirmation() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ColorSuccess,
		Title:       "Message Received",
		Description: "Your message has been sent to the moderators. They will respond as soon as possible.",
		Timestamp:   timestamp(),
	}
}

func IntroPrompt(guildName string) *discordgo.MessageEmbed {
	description := "Before we connect you with the moderators"
	if guildName != "" {
		description += " of **" + guildName + "**"
	}
	description += ", please tell us a little about what you need. Press **Start Conversation** to fill in a short form."
	return &discordgo.MessageEmbed{
		Color:       ColorInfo,
		Title:       "Contact the Moderators",
		Description: truncate(description, maxDescription),
		Timestamp:   timestamp(),
	}
}

func UrgencyChanged(level backend.Urgency, byTag string) string {
	return fmt.Sprintf("🔄 **Thread urgency changed to %s** by %s", level, byTag)
}

// AuditEvent is the compact log-channel entry for thread lifecycle events.
func AuditEvent(event, userID, details string) *discordgo.MessageEmbed {
	title := strings.ReplaceAll(event, "_", " ")
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	description := details
	if userID != "" {
		description = fmt.Sprintf("**User:** <@%s> (%s)\n%s", userID, userID, details)
	}
	return &discordgo.MessageEmbed{
		Color:       ColorWarning,
		Title:       title,
		Description: truncate(strings.TrimSpace(description), maxDescription),
		Timestamp:   timestamp(),
	}
}

func ProcessAttachments(attachments []*discordgo.MessageAttachment) []backend.Attachment {
	out := make([]backend.Attachment, 0, len(attachments))
	for _, att := range attachments {
		if att == nil {
			continue
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "unknown"
		}
		out = append(out, backend.Attachment{
			URL:         att.URL,
			Filename:    att.Filename,
			ContentType: contentType,
			Size:        att.Size,
		})
	}
	return out
}

// Attachments shows the first image inline and lists every other file.
func Attachments(embed *discordgo.MessageEmbed, attachments []backend.Attachment) *discordgo.MessageEmbed {
	var files []string
	for _, att := range attachments {
		if att.IsImage() && embed.Image == nil {
			embed.Image = &discordgo.MessageEmbedImage{URL: att.URL}
			continue
		}
		if !att.IsImage() {
			files = append(files, fmt.Sprintf("[Attachment: %s](%s)", att.Filename, att.URL))
		}
	}
	if len(files) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Attachments",
			Value: truncate(strings.Join(files, "\n"), maxFieldValue),
		})
	}
	return embed
}

func Links(embed *discordgo.MessageEmbed, content string) *discordgo.MessageEmbed {
	hosts := utils.LinkHosts(content)
	if len(hosts) == 0 {
		return embed
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Links",
		Value: truncate(strings.Join(hosts, ", "), maxFieldValue),
	})
	return embed
}

func FlaggedWords(embed *discordgo.MessageEmbed, content string, words []string) *discordgo.MessageEmbed {
	matched := utils.MatchWords(content, words)
	if len(matched) == 0 {
		return embed
	}
	embed.Color = ColorWarning
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Flagged words",
		Value: truncate(strings.Join(matched, ", "), maxFieldValue),
	})
	return embed
}

func ConfigSummary(cfg backend.GuildConfig) string {
	channel := func(id string) string {
		if id == "" {
			return "Not set"
		}
		return "<#" + id + ">"
	}
	randomize := "Disabled"
	if cfg.RandomizeNames {
		randomize = "Enabled"
	}
	hours := "Not set"
	if cfg.AutoCloseHours > 0 {
		hours = fmt.Sprintf("%d", cfg.AutoCloseHours)
	}
	welcome := cfg.WelcomeMessage
	if welcome == "" {
		welcome = "Default"
	}
	roles := "None"
	if len(cfg.ModeratorRoleIDs) > 0 {
		mentions := make([]string, 0, len(cfg.ModeratorRoleIDs))
		for _, id := range cfg.ModeratorRoleIDs {
			mentions = append(mentions, "<@&"+id+">")
		}
		roles = strings.Join(mentions, ", ")
	}
	words := "None"
	if len(cfg.BlockedWords) > 0 {
		words = strings.Join(cfg.BlockedWords, ", ")
	}

	return strings.Join([]string{
		"**Current Configuration:**",
		"**Modmail Category:** " + channel(cfg.ModmailCategoryID),
		"**Log Channel:** " + channel(cfg.LogChannelID),
		"**Randomize Names:** " + randomize,
		"**Auto Close Hours:** " + hours,
		"**Welcome Message:** " + welcome,
		"**Moderator Roles:** " + roles,
		"**Blocked Words:** " + words,
	}, "\n")
}
