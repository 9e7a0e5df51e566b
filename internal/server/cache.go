package server

import (
	"context"
	"sync"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// eventCache holds the last fetched event list for ttl. Concurrent misses
// share one fetch because the lock is held while fetching.
type eventCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	events  []model.Event
	fetched time.Time
	valid   bool
}

func newEventCache(ttl time.Duration, now func() time.Time) *eventCache {
	return &eventCache{ttl: ttl, now: now}
}

func (c *eventCache) get(ctx context.Context, fetch func(context.Context) ([]model.Event, error)) ([]model.Event, error) {
	if c.ttl <= 0 {
		return fetch(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.now().Sub(c.fetched) < c.ttl {
		return c.events, nil
	}
	evs, err := fetch(ctx)
	if err != nil {
		// Failed fetches are not cached.
		return nil, err
	}
	c.events, c.fetched, c.valid = evs, c.now(), true
	return evs, nil
}

func (c *eventCache) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.events = nil
	c.mu.Unlock()
}
