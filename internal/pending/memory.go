package pending

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	clock   Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		clock:   realClock{},
	}
}

func (s *MemoryStore) WithClock(clock Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.GuildIDs = append([]string(nil), entry.GuildIDs...)
	entry.Messages = append([]PendingMessage(nil), entry.Messages...)
	s.entries[entry.Token] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(token)
}

func (s *MemoryStore) Take(_ context.Context, token string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.liveLocked(token)
	if err != nil {
		return Entry{}, err
	}
	delete(s.entries, token)
	return entry, nil
}

func (s *MemoryStore) FindByUser(_ context.Context, kind Kind, userID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	var found Entry
	ok := false
	for _, entry := range s.entries {
		if entry.Kind != kind || entry.UserID != userID || entry.Expired(now) {
			continue
		}
		if !ok || entry.CreatedAt.After(found.CreatedAt) {
			found = entry
			ok = true
		}
	}
	if !ok {
		return Entry{}, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) Append(_ context.Context, token string, msg PendingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.liveLocked(token)
	if err != nil {
		return err
	}
	entry.Messages = appendQueued(entry.Messages, msg)
	s.entries[token] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) liveLocked(token string) (Entry, error) {
	entry, ok := s.entries[token]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.Expired(s.clock.Now()) {
		delete(s.entries, token)
		return Entry{}, ErrExpired
	}
	return entry, nil
}
