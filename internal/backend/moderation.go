package backend

import (
	"context"
	"net/http"
	"net/url"
)

func blockedPath(guildID, userID string) string {
	return guildPath(guildID, "blocked-users", url.PathEscape(userID))
}

func (c *Client) BlockUser(ctx context.Context, guildID string, user NewBlockedUser) (BlockedUser, error) {
	user.GuildID = guildID
	var out BlockedUser
	err := c.do(ctx, http.MethodPost, guildPath(guildID, "blocked-users"), nil, user, &out)
	return out, err
}

func (c *Client) IsBlocked(ctx context.Context, guildID, userID string) (bool, error) {
	var result struct {
		Blocked bool `json:"blocked"`
	}
	err := c.do(ctx, http.MethodGet, blockedPath(guildID, userID), nil, nil, &result)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result.Blocked, nil
}

func (c *Client) UnblockUser(ctx context.Context, guildID, userID string) error {
	return c.do(ctx, http.MethodDelete, blockedPath(guildID, userID), nil, nil, nil)
}

func (c *Client) ListBlocked(ctx context.Context, guildID string) ([]BlockedUser, error) {
	var users []BlockedUser
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "blocked-users"), nil, nil, &users)
	return users, err
}

func (c *Client) GetConfig(ctx context.Context, guildID string) (GuildConfig, error) {
	var cfg GuildConfig
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "config"), nil, nil, &cfg)
	return cfg, err
}

func (c *Client) CreateConfig(ctx context.Context, guildID string, initial ConfigUpdate) (GuildConfig, error) {
	body := struct {
		GuildID string `json:"guild_id"`
		ConfigUpdate
	}{GuildID: guildID, ConfigUpdate: initial}
	var cfg GuildConfig
	err := c.do(ctx, http.MethodPost, guildPath(guildID, "config"), nil, body, &cfg)
	return cfg, err
}

func (c *Client) UpdateConfig(ctx context.Context, guildID string, update ConfigUpdate) (GuildConfig, error) {
	var cfg GuildConfig
	err := c.do(ctx, http.MethodPut, guildPath(guildID, "config"), nil, update, &cfg)
	return cfg, err
}

// ResetConfig writes explicit nulls and empty lists for every setting.
func (c *Client) ResetConfig(ctx context.Context, guildID string) (GuildConfig, error) {
	body := map[string]any{
		"modmail_category_id": nil,
		"log_channel_id":      nil,
		"randomize_names":     false,
		"auto_close_hours":    nil,
		"welcome_message":     nil,
		"moderator_role_ids":  []string{},
		"blocked_words":       []string{},
	}
	var cfg GuildConfig
	err := c.do(ctx, http.MethodPut, guildPath(guildID, "config"), nil, body, &cfg)
	return cfg, err
}

func (c *Client) CreateServer(ctx context.Context, guildID, guildName string) (Server, error) {
	body := struct {
		GuildID   string `json:"guild_id"`
		GuildName string `json:"guild_name"`
	}{GuildID: guildID, GuildName: guildName}
	var server Server
	err := c.do(ctx, http.MethodPost, "/servers", nil, body, &server)
	return server, err
}

func (c *Client) ValidateGuilds(ctx context.Context, guilds []ValidateGuildRequest) ([]ValidatedGuild, error) {
	if len(guilds) == 0 {
		return nil, nil
	}
	var out []ValidatedGuild
	err := c.do(ctx, http.MethodPost, "/validate-guilds", nil, guilds, &out)
	return out, err
}

// The analytics views are served outside /guilds and filtered by the
// guild_id query parameter.
func analyticsQuery(guildID string) url.Values {
	return url.Values{"guild_id": {guildID}}
}

func (c *Client) AnalyticsOverview(ctx context.Context, guildID string) (AnalyticsOverview, error) {
	var out AnalyticsOverview
	err := c.do(ctx, http.MethodGet, "/analytics/overview", analyticsQuery(guildID), nil, &out)
	return out, err
}

func (c *Client) ThreadVolume(ctx context.Context, guildID string) ([]ThreadVolume, error) {
	var out []ThreadVolume
	err := c.do(ctx, http.MethodGet, "/analytics/thread-volume", analyticsQuery(guildID), nil, &out)
	return out, err
}

func (c *Client) ModeratorActivity(ctx context.Context, guildID string) ([]ModeratorActivity, error) {
	var out []ModeratorActivity
	err := c.do(ctx, http.MethodGet, "/analytics/moderator-activity", analyticsQuery(guildID), nil, &out)
	return out, err
}

func (c *Client) ResponseTimes(ctx context.Context, guildID string) (ResponseTimes, error) {
	var out ResponseTimes
	err := c.do(ctx, http.MethodGet, "/analytics/response-times", analyticsQuery(guildID), nil, &out)
	return out, err
}
