package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts dashboard events to the bot.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

func NewClient(url, secret string, timeout time.Duration) *Client {
	return &Client{url: url, secret: secret, http: &http.Client{Timeout: timeout}}
}

func (c *Client) ThreadClosed(ctx context.Context, event ThreadClosedEvent) error {
	if c == nil || c.url == "" {
		return nil
	}
	return c.post(ctx, Payload{
		Type:        TypeThreadClosed,
		GuildID:     event.GuildID,
		Thread:      event.Thread,
		ClosedByID:  event.ClosedByID,
		ClosedByTag: event.ClosedByTag,
	})
}

// ThreadMessage asks the bot to deliver a dashboard reply. Unlike closures it
// fails without a webhook url, since the user would never see the message.
func (c *Client) ThreadMessage(ctx context.Context, event ThreadMessageEvent) error {
	if c == nil || c.url == "" {
		return ErrNoEndpoint
	}
	return c.post(ctx, Payload{
		Type:      TypeThreadMessage,
		GuildID:   event.GuildID,
		Thread:    event.Thread,
		AuthorID:  event.AuthorID,
		AuthorTag: event.AuthorTag,
		Content:   event.Content,
	})
}

func (c *Client) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, Sign(c.secret, body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify bot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("notify bot: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
