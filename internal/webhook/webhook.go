package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"modmail-bridge/internal/backend"
)

const (
	TypeThreadClosed  = "thread_closed"
	TypeThreadMessage = "thread_message"
	SignatureHeader  = "X-Modmail-Signature"
	signaturePrefix  = "sha256="
)

var (
	ErrNoEndpoint       = errors.New("bot webhook url is not configured")
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("signature verification failed")
)

// Payload is what the dashboard posts after closing a thread or replying
// to one.
type Payload struct {
	Type        string         `json:"type"`
	GuildID     string         `json:"guild_id,omitempty"`
	Thread      backend.Thread `json:"thread"`
	ClosedByID  string         `json:"closed_by_id,omitempty"`
	ClosedByTag string         `json:"closed_by_tag,omitempty"`
	AuthorID    string         `json:"author_id,omitempty"`
	AuthorTag   string         `json:"author_tag,omitempty"`
	Content     string         `json:"content,omitempty"`
}

type ThreadClosedEvent struct {
	GuildID     string
	Thread      backend.Thread
	ClosedByID  string
	ClosedByTag string
}

type ThreadMessageEvent struct {
	GuildID   string
	Thread    backend.Thread
	AuthorID  string
	AuthorTag string
	Content   string
}

// Notifier is implemented by the bot to act on thread changes made from the
// dashboard.
type Notifier interface {
	ThreadClosed(ctx context.Context, event ThreadClosedEvent) error
	ThreadMessage(ctx context.Context, event ThreadMessageEvent) error
}

func (p Payload) guildID() string {
	if p.GuildID != "" {
		return p.GuildID
	}
	return p.Thread.GuildID
}

func (p Payload) closedEvent() ThreadClosedEvent {
	return ThreadClosedEvent{
		GuildID:     p.guildID(),
		Thread:      p.Thread,
		ClosedByID:  p.ClosedByID,
		ClosedByTag: p.ClosedByTag,
	}
}

func (p Payload) messageEvent() ThreadMessageEvent {
	return ThreadMessageEvent{
		GuildID:   p.guildID(),
		Thread:    p.Thread,
		AuthorID:  p.AuthorID,
		AuthorTag: p.AuthorTag,
		Content:   p.Content,
	}
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func Verify(secret, header string, body []byte) error {
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrBadSignature
	}
	if !hmac.Equal([]byte(Sign(secret, body)), []byte(header)) {
		return ErrBadSignature
	}
	return nil
}
