package pending

import (
	"context"
	"errors"
	"time"

	"modmail-bridge/internal/backend"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("pending entry not found")
	ErrExpired  = errors.New("pending entry expired")
)

// Kind says which interaction resumes the entry.
type Kind string

const (
	KindIntro          Kind = "intro"
	KindSelectNew      Kind = "select_new"
	KindSelectExisting Kind = "select_existing"
)

// MaxQueued caps how many DMs are held while a user has not finished the intro.
const MaxQueued = 10

// PendingMessage is a DM held back until the user finishes a prompt.
type PendingMessage struct {
	Content     string               `json:"content"`
	Attachments []backend.Attachment `json:"attachments,omitempty"`
	ChannelID   string               `json:"channel_id,omitempty"`
	MessageID   string               `json:"message_id,omitempty"`
}

type Entry struct {
	Token     string
	Kind      Kind
	UserID    string
	GuildID   string
	GuildIDs  []string
	Messages  []PendingMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// HasGuild reports whether id was one of the guilds offered to the user.
func (e Entry) HasGuild(id string) bool {
	if e.GuildID == id {
		return true
	}
	for _, guildID := range e.GuildIDs {
		if guildID == id {
			return true
		}
	}
	return false
}

func NewEntry(kind Kind, userID string, msg PendingMessage, now time.Time, ttl time.Duration) Entry {
	return Entry{
		Token:     uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Messages:  []PendingMessage{msg},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Store holds intro and guild-selection state between a DM and the
// interaction that completes it.
type Store interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, token string) (Entry, error)
	// Take returns the entry and removes it.
	Take(ctx context.Context, token string) (Entry, error)
	// FindByUser returns the newest live entry of kind for the user.
	FindByUser(ctx context.Context, kind Kind, userID string) (Entry, error)
	Append(ctx context.Context, token string, msg PendingMessage) error
	Delete(ctx context.Context, token string) error
	Purge(ctx context.Context, now time.Time) (int, error)
	Close() error
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

func appendQueued(messages []PendingMessage, msg PendingMessage) []PendingMessage {
	if len(messages) >= MaxQueued {
		return messages
	}
	return append(messages, msg)
}
