package dashboard

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/discordgo"
)

// UserAPI calls Discord on behalf of a logged-in user with their OAuth token.
type UserAPI interface {
	CurrentUser(ctx context.Context, token string) (*discordgo.User, error)
	Guilds(ctx context.Context, token string) ([]*discordgo.UserGuild, error)
	Member(ctx context.Context, token, guildID string) (*discordgo.Member, error)
}

type bearerUsers struct{}

func NewUserAPI() UserAPI {
	return bearerUsers{}
}

func bearerSession(token string) (*discordgo.Session, error) {
	return discordgo.New("Bearer " + token)
}

func (bearerUsers) CurrentUser(_ context.Context, token string) (*discordgo.User, error) {
	session, err := bearerSession(token)
	if err != nil {
		return nil, err
	}
	return session.User("@me")
}

func (bearerUsers) Guilds(_ context.Context, token string) ([]*discordgo.UserGuild, error) {
	session, err := bearerSession(token)
	if err != nil {
		return nil, err
	}
	return session.UserGuilds(100, "", "")
}

func (bearerUsers) Member(_ context.Context, token, guildID string) (*discordgo.Member, error) {
	session, err := bearerSession(token)
	if err != nil {
		return nil, err
	}
	endpoint := discordgo.EndpointUsers + "@me/guilds/" + guildID + "/member"
	body, err := session.RequestWithBucketID("GET", endpoint, nil, discordgo.EndpointUsers+"@me/guilds/member")
	if err != nil {
		return nil, err
	}
	var member discordgo.Member
	if err := json.Unmarshal(body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}
