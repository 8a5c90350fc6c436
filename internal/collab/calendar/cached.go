package calendar

import (
	"context"
	"sync"
	"time"
)

// cacheTTL bounds how long a fetched event list is reused before the
// next FetchEvents call hits the platform calendar API again. Calendar
// apps poll infrequently and a meeting's schedule rarely changes inside
// a five-minute window, so re-fetching on every trigger evaluation tick
// would be wasted platform-API traffic for no behavioral benefit.
const cacheTTL = 5 * time.Minute

// CachedProvider wraps a Provider with a single-entry time-boxed cache.
// golang-lru/v2 has no native TTL support, so the cache here is just a
// fetchedAt timestamp checked against cacheTTL rather than an LRU
// eviction policy — there is only ever one cache key (today's events).
type CachedProvider struct {
	inner Provider

	mu        sync.Mutex
	events    []Event
	fetchedAt time.Time
}

// NewCachedProvider wraps inner with a cacheTTL-bounded cache.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{inner: inner}
}

// FetchEvents returns the cached event list if it was fetched within
// cacheTTL, otherwise re-fetches from inner and refreshes the cache.
func (c *CachedProvider) FetchEvents(ctx context.Context) ([]Event, error) {
	c.mu.Lock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < cacheTTL {
		events := c.events
		c.mu.Unlock()
		return events, nil
	}
	c.mu.Unlock()

	events, err := c.inner.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.events = events
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return events, nil
}
