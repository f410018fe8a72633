package pending

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Janitor purges expired entries on a fixed interval until stopped.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger
	clock    Clock
	extra    []func(time.Time)

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

func NewJanitor(store Store, interval time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{store: store, interval: interval, logger: logger, clock: realClock{}}
}

func (j *Janitor) WithClock(clock Clock) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.clock = clock
}

// Also runs fn with the tick time after every purge.
func (j *Janitor) Also(fn func(now time.Time)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.extra = append(j.extra, fn)
}

func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = false
	j.scheduleLocked(ctx)
}

func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
	if j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}
}

func (j *Janitor) scheduleLocked(ctx context.Context) {
	j.timer = j.clock.AfterFunc(j.interval, func() {
		j.RunOnce(ctx)
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.stopped || ctx.Err() != nil {
			return
		}
		j.scheduleLocked(ctx)
	})
}

func (j *Janitor) RunOnce(ctx context.Context) int {
	j.mu.Lock()
	now := j.clock.Now()
	extra := append([]func(time.Time){}, j.extra...)
	j.mu.Unlock()

	defer func() {
		for _, fn := range extra {
			fn(now)
		}
	}()

	removed, err := j.store.Purge(ctx, now)
	if err != nil {
		j.logger.Warn("pending purge failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		j.logger.Debug("pending entries purged", zap.Int("count", removed))
	}
	return removed
}
