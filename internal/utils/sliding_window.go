package utils

import (
	"sync"
	"time"
)

type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	return len(w.hits)
}

func (w *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// FloodGuard keeps one sliding window per key and reports when a key goes
// over its limit. A zero limit disables the guard.
type FloodGuard struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewFloodGuard(limit int, window time.Duration) *FloodGuard {
	return &FloodGuard{limit: limit, window: window, windows: make(map[string]*SlidingWindow)}
}

func (g *FloodGuard) Allow(key string, now time.Time) bool {
	if g == nil || g.limit <= 0 || g.window <= 0 {
		return true
	}
	g.mu.Lock()
	w, ok := g.windows[key]
	if !ok {
		w = NewSlidingWindow(g.window)
		g.windows[key] = w
	}
	g.mu.Unlock()
	return w.Add(now) <= g.limit
}

// Sweep drops windows that have gone quiet.
func (g *FloodGuard) Sweep(now time.Time) int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for key, w := range g.windows {
		if w.Count(now) == 0 {
			delete(g.windows, key)
			removed++
		}
	}
	return removed
}
