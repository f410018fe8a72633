package backend

import (
	"errors"
	"strings"
	"time"
)

type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
	UrgencyUrgent Urgency = "Urgent"

	DefaultUrgency = UrgencyMedium
)

var ErrInvalidUrgency = errors.New("invalid urgency level. Valid levels are: Low, Medium, High, Urgent")

var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent}

// ParseUrgency accepts any casing of the four levels.
func ParseUrgency(value string) (Urgency, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidUrgency
	}
	normalized := Urgency(strings.ToUpper(value[:1]) + strings.ToLower(value[1:]))
	for _, level := range Urgencies {
		if level == normalized {
			return level, nil
		}
	}
	return "", ErrInvalidUrgency
}

type Thread struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	ThreadID  string     `json:"thread_id"`
	GuildID   string     `json:"guild_id"`
	IsOpen    bool       `json:"is_open"`
	Urgency   Urgency    `json:"urgency,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ChannelID is the Discord text channel mirroring the thread.
func (t Thread) ChannelID() string { return t.ThreadID }

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type ThreadPage struct {
	Threads    []Thread   `json:"threads"`
	Pagination Pagination `json:"pagination"`
}

type ThreadDetail struct {
	Thread     Thread     `json:"thread"`
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

type CreateThreadRequest struct {
	UserID   string  `json:"user_id"`
	ThreadID string  `json:"thread_id"`
	GuildID  string  `json:"guild_id"`
	Urgency  Urgency `json:"urgency,omitempty"`
}

type CloseThreadRequest struct {
	ClosedByID  string `json:"closed_by_id"`
	ClosedByTag string `json:"closed_by_tag"`
}

type Attachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

type Message struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	AuthorTag   string       `json:"author_tag"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	GuildID     string       `json:"guild_id"`
}

type NewMessage struct {
	AuthorID    string       `json:"author_id"`
	AuthorTag   string       `json:"author_tag"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	GuildID     string       `json:"guild_id"`
}

type Note struct {
	ID        string    `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	AuthorID  string    `json:"author_id"`
	AuthorTag string    `json:"author_tag"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	GuildID   string    `json:"guild_id"`
}

type NewNote struct {
	AuthorID  string `json:"author_id"`
	AuthorTag string `json:"author_tag"`
	Content   string `json:"content"`
	GuildID   string `json:"guild_id"`
}

type Macro struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	QuickAccess bool   `json:"quick_access"`
	GuildID     string `json:"guild_id"`
}

type NewMacro struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	QuickAccess *bool  `json:"quick_access,omitempty"`
	GuildID     string `json:"guild_id"`
}

type BlockedUser struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	UserTag      string    `json:"user_tag"`
	BlockedBy    string    `json:"blocked_by"`
	BlockedByTag string    `json:"blocked_by_tag"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
	GuildID      string    `json:"guild_id"`
}

type NewBlockedUser struct {
	UserID       string  `json:"user_id"`
	UserTag      string  `json:"user_tag"`
	BlockedBy    string  `json:"blocked_by"`
	BlockedByTag string  `json:"blocked_by_tag"`
	Reason       *string `json:"reason"`
	GuildID      string  `json:"guild_id"`
}

type GuildConfig struct {
	ID                int64     `json:"id"`
	GuildID           string    `json:"guild_id"`
	ModmailCategoryID string    `json:"modmail_category_id"`
	LogChannelID      string    `json:"log_channel_id"`
	RandomizeNames    bool      `json:"randomize_names"`
	AutoCloseHours    int       `json:"auto_close_hours"`
	WelcomeMessage    string    `json:"welcome_message"`
	ModeratorRoleIDs  []string  `json:"moderator_role_ids"`
	BlockedWords      []string  `json:"blocked_words"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ConfigUpdate only sends the fields that are set. Slices are pointers so an
// emptied list is still transmitted.
type ConfigUpdate struct {
	ModmailCategoryID *string   `json:"modmail_category_id,omitempty"`
	LogChannelID      *string   `json:"log_channel_id,omitempty"`
	RandomizeNames    *bool     `json:"randomize_names,omitempty"`
	AutoCloseHours    *int      `json:"auto_close_hours,omitempty"`
	WelcomeMessage    *string   `json:"welcome_message,omitempty"`
	ModeratorRoleIDs  *[]string `json:"moderator_role_ids,omitempty"`
	BlockedWords      *[]string `json:"blocked_words,omitempty"`
}

type Server struct {
	ID         int64     `json:"id"`
	GuildID    string    `json:"guild_id"`
	GuildName  string    `json:"guild_name"`
	IsPremium  bool      `json:"is_premium"`
	MaxThreads int       `json:"max_threads"`
	MaxMacros  int       `json:"max_macros"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ValidateGuildRequest struct {
	GuildID            string  `json:"guild_id"`
	GuildName          string  `json:"guild_name"`
	GuildIcon          *string `json:"guild_icon"`
	UserHasPermissions bool    `json:"user_has_permissions"`
}

type ValidatedGuild struct {
	GuildID            string  `json:"guild_id"`
	GuildName          string  `json:"guild_name"`
	GuildIcon          *string `json:"guild_icon"`
	HasBot             bool    `json:"has_bot"`
	HasConfig          bool    `json:"has_config"`
	UserHasPermissions bool    `json:"user_has_permissions"`
}

type AnalyticsOverview struct {
	TotalThreads         int64    `json:"total_threads"`
	OpenThreads          int64    `json:"open_threads"`
	ClosedThreads        int64    `json:"closed_threads"`
	TotalMessages        int64    `json:"total_messages"`
	TotalNotes           int64    `json:"total_notes"`
	BlockedUsers         int64    `json:"blocked_users"`
	AvgResponseTimeHours *float64 `json:"avg_response_time_hours"`
	ThreadsToday         int64    `json:"threads_today"`
	ThreadsThisWeek      int64    `json:"threads_this_week"`
	ThreadsThisMonth     int64    `json:"threads_this_month"`
}

type ThreadVolume struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ModeratorActivity struct {
	ModeratorTag  string `json:"moderator_tag"`
	MessageCount  int64  `json:"message_count"`
	NoteCount     int64  `json:"note_count"`
	ThreadsClosed int64  `json:"threads_closed"`
}

type ResponseTimes struct {
	AvgFirstResponseHours    *float64 `json:"avg_first_response_hours"`
	AvgResolutionTimeHours   *float64 `json:"avg_resolution_time_hours"`
	MedianFirstResponseHours *float64 `json:"median_first_response_hours"`
}
