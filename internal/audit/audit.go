package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Thread lifecycle events.
const (
	EventThreadCreated  = "thread_created"
	EventThreadClosed   = "thread_closed"
	EventThreadDeleted  = "thread_deleted"
	EventUrgencyChanged = "urgency_changed"
	EventUserBlocked    = "user_blocked"
	EventUserUnblocked  = "user_unblocked"
	EventFloodDropped   = "flood_dropped"
)

type Entry struct {
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

type Notifier func(context.Context, Entry)

type Logger struct {
	logger *zap.Logger

	mu     sync.RWMutex
	notify Notifier
}

func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

func (l *Logger) SetNotifier(notify Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	if l == nil {
		return
	}
	entry := Entry{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}

	l.mu.RLock()
	notify := l.notify
	l.mu.RUnlock()
	if notify != nil {
		notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
