package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var ErrNoSession = errors.New("discord session not available")

// Client is the slice of the Discord API the modmail handlers use.
type Client interface {
	BotUserID() string
	SendDM(userID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	SendChannel(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	React(channelID, messageID, emoji string) error
	CreateTextChannel(guildID, name, topic, parentID string) (*discordgo.Channel, error)
	DeleteChannel(channelID string) error
	Channel(channelID string) (*discordgo.Channel, error)
	User(userID string) (*discordgo.User, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Guild(guildID string) (*discordgo.Guild, error)
	Guilds() []*discordgo.Guild
	Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(interaction *discordgo.Interaction, content string, ephemeral bool) error
}

type sessionClient struct {
	session *discordgo.Session
}

func NewSessionClient(session *discordgo.Session) Client {
	return &sessionClient{session: session}
}

func (c *sessionClient) BotUserID() string {
	if c.session == nil || c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *sessionClient) SendDM(userID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	channel, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("open dm channel: %w", err)
	}
	return c.session.ChannelMessageSendComplex(channel.ID, msg)
}

func (c *sessionClient) SendChannel(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.session.ChannelMessageSendComplex(channelID, msg)
}

func (c *sessionClient) React(channelID, messageID, emoji string) error {
	return c.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (c *sessionClient) CreateTextChannel(guildID, name, topic, parentID string) (*discordgo.Channel, error) {
	return c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    topic,
		ParentID: parentID,
	})
}

func (c *sessionClient) DeleteChannel(channelID string) error {
	_, err := c.session.ChannelDelete(channelID)
	return err
}

func (c *sessionClient) Channel(channelID string) (*discordgo.Channel, error) {
	if channel, err := c.session.State.Channel(channelID); err == nil {
		return channel, nil
	}
	return c.session.Channel(channelID)
}

func (c *sessionClient) User(userID string) (*discordgo.User, error) {
	return c.session.User(userID)
}

func (c *sessionClient) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := c.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	return c.session.GuildMember(guildID, userID)
}

func (c *sessionClient) Guild(guildID string) (*discordgo.Guild, error) {
	if guild, err := c.session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return c.session.Guild(guildID)
}

func (c *sessionClient) Guilds() []*discordgo.Guild {
	if c.session == nil || c.session.State == nil {
		return nil
	}
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	guilds := make([]*discordgo.Guild, 0, len(c.session.State.Guilds))
	for _, guild := range c.session.State.Guilds {
		if guild != nil {
			guilds = append(guilds, guild)
		}
	}
	return guilds
}

func (c *sessionClient) Respond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return c.session.InteractionRespond(interaction, resp)
}

func (c *sessionClient) Followup(interaction *discordgo.Interaction, content string, ephemeral bool) error {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := c.session.FollowupMessageCreate(interaction, true, params)
	return err
}
