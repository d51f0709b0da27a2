// Package ttscache provides a short-lived, thread-safe store for synthesized
// audio, decoupling synthesis during turn processing from the later fetch.
package ttscache

import (
	"bytes"
	"sync"
	"time"
)

// DefaultTTL is how long cached audio stays retrievable.
const DefaultTTL = 5 * time.Minute

type entry struct {
	audio    []byte
	storedAt time.Time
}

// Cache is a TTL-keyed blob store. Entries expire lazily on Get and eagerly
// on Cleanup; a miss due to expiry is indistinguishable from absence.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store upserts audio bytes under the request id with the current timestamp,
// overwriting any existing entry.
func (c *Cache) Store(requestID string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[requestID] = entry{
		audio:    bytes.Clone(audio),
		storedAt: c.now(),
	}
}

// Get returns the audio bytes if present and unexpired. A found-but-expired
// entry is removed as a side effect.
func (c *Cache) Get(requestID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[requestID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, requestID)
		return nil, false
	}
	return bytes.Clone(e.audio), true
}

// Cleanup removes all expired entries and returns the count removed. It is
// meant to run off the request path, after a turn or a session deletion.
func (c *Cache) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for id, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(c.entries, id)
	}
	return len(expired)
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
