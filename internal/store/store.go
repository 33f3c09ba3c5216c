// Package store holds the per-grade event cache. It is the single source
// of truth for normalized events; no other component keeps a second copy
// for the same grade key.
package store

import (
	"context"
	"sync"
	"time"

	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
)

// DefaultTTL is the freshness window after which a cached grade entry is
// stale and must be rebuilt.
const DefaultTTL = 5 * time.Minute

// Loader runs the fetch-decode-expand-normalize pipeline for one grade.
type Loader func(ctx context.Context, grade int) ([]model.CalendarEvent, error)

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// entry is one cached result. Entries are replaced wholesale on refresh;
// there is no partial update.
type entry struct {
	events    []model.CalendarEvent
	fetchedAt time.Time
}

// Store caches normalized events per grade with TTL-based invalidation.
// Concurrent refreshes of the same grade are tolerated: the later
// completion wins, which is acceptable because staleness inside the TTL
// window is tolerated by design.
type Store struct {
	ttl  time.Duration
	load Loader
	now  func() time.Time

	mu      sync.RWMutex
	entries map[int]entry
}

// New creates a Store. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, load Loader, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		ttl:     ttl,
		load:    load,
		now:     time.Now,
		entries: make(map[int]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetEvents returns the cached events for grade if the entry is still
// fresh, and otherwise runs the pipeline and replaces the entry. On a
// pipeline failure the previous entry is left untouched, so cache hits
// keep serving until the TTL expires, and the error is returned for this
// request only. Callers must not mutate the returned slice.
func (s *Store) GetEvents(ctx context.Context, grade int) ([]model.CalendarEvent, error) {
	s.mu.RLock()
	e, ok := s.entries[grade]
	s.mu.RUnlock()

	if ok && s.now().Sub(e.fetchedAt) < s.ttl {
		return e.events, nil
	}

	return s.refresh(ctx, grade)
}

// Refresh rebuilds the entry for grade regardless of freshness. Used by
// the scheduled prewarm so interactive requests mostly hit a warm cache.
func (s *Store) Refresh(ctx context.Context, grade int) error {
	_, err := s.refresh(ctx, grade)
	return err
}

func (s *Store) refresh(ctx context.Context, grade int) ([]model.CalendarEvent, error) {
	events, err := s.load(ctx, grade)
	if err != nil {
		appLog.Error("event pipeline failed", err, "grade", grade)
		return nil, err
	}

	s.mu.Lock()
	s.entries[grade] = entry{
		events:    events,
		fetchedAt: s.now(),
	}
	s.mu.Unlock()

	appLog.Info("event cache refreshed", "grade", grade, "event_count", len(events))
	return events, nil
}
