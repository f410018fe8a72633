package backend

import (
	"context"
	"net/http"
	"net/url"
)

type MacroUpdate struct {
	Content     string `json:"content"`
	QuickAccess *bool  `json:"quick_access,omitempty"`
}

func macroPath(guildID, name string) string {
	return guildPath(guildID, "macros", url.PathEscape(name))
}

func (c *Client) ListMacros(ctx context.Context, guildID string) ([]Macro, error) {
	var macros []Macro
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "macros"), nil, nil, &macros)
	return macros, err
}

func (c *Client) ListQuickAccessMacros(ctx context.Context, guildID string) ([]Macro, error) {
	var macros []Macro
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "macros", "quick-access"), nil, nil, &macros)
	return macros, err
}

func (c *Client) GetMacro(ctx context.Context, guildID, name string) (Macro, error) {
	var m Macro
	err := c.do(ctx, http.MethodGet, macroPath(guildID, name), nil, nil, &m)
	return m, err
}

func (c *Client) CreateMacro(ctx context.Context, guildID string, macro NewMacro) (Macro, error) {
	macro.GuildID = guildID
	var m Macro
	err := c.do(ctx, http.MethodPost, guildPath(guildID, "macros"), nil, macro, &m)
	return m, err
}

func (c *Client) UpdateMacro(ctx context.Context, guildID, name string, update MacroUpdate) (Macro, error) {
	body := struct {
		Name    string `json:"name"`
		GuildID string `json:"guild_id"`
		MacroUpdate
	}{Name: name, GuildID: guildID, MacroUpdate: update}
	var m Macro
	err := c.do(ctx, http.MethodPut, macroPath(guildID, name), nil, body, &m)
	return m, err
}

func (c *Client) DeleteMacro(ctx context.Context, guildID, name string) error {
	return c.do(ctx, http.MethodDelete, macroPath(guildID, name), nil, nil, nil)
}
