package memory

import (
	"context"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

type ResponseCacheConfig struct {
	DefaultTTL time.Duration
	MaxEntries int
}

// ResponseCache stores generated answers in a sharded map; each shard has its
// own lock. Expired entries read as misses and are removed on the way out.
// With MaxEntries set, Put evicts in insertion order from a queue, so staying
// under the bound never scans the map.
type ResponseCache struct {
	entries    cmap.ConcurrentMap
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	order []insertion
}

// insertion is one Put in the eviction queue. Records left behind by a
// refresh or an expiry no longer match the live entry and are skipped.
type insertion struct {
	key       string
	createdAt time.Time
}

func NewResponseCache(cfg ResponseCacheConfig) *ResponseCache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	return &ResponseCache{
		entries:    cmap.New(),
		defaultTTL: cfg.DefaultTTL,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
	}
}

func (c *ResponseCache) Get(_ context.Context, fingerprint string) (domain.GeneratedAnswer, bool) {
	value, ok := c.entries.Get(fingerprint)
	if !ok {
		return domain.GeneratedAnswer{}, false
	}
	entry, ok := value.(domain.CacheEntry)
	if !ok {
		return domain.GeneratedAnswer{}, false
	}
	if entry.Expired(c.now()) {
		c.removeIfSame(fingerprint, entry.CreatedAt)
		return domain.GeneratedAnswer{}, false
	}
	return cloneAnswer(entry.Answer), true
}

func (c *ResponseCache) Put(_ context.Context, fingerprint string, answer domain.GeneratedAnswer, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	createdAt := c.now()
	c.entries.Set(fingerprint, domain.CacheEntry{
		Fingerprint: fingerprint,
		Answer:      cloneAnswer(answer),
		CreatedAt:   createdAt,
		TTL:         ttl,
	})
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, insertion{key: fingerprint, createdAt: createdAt})
	for c.entries.Count() > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.removeIfSame(oldest.key, oldest.createdAt)
	}
	if len(c.order) > 2*c.maxEntries {
		c.compactLocked()
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (c *ResponseCache) Sweep(now time.Time) int {
	removed := 0
	for item := range c.entries.IterBuffered() {
		entry, ok := item.Val.(domain.CacheEntry)
		if !ok || !entry.Expired(now) {
			continue
		}
		if c.removeIfSame(item.Key, entry.CreatedAt) {
			removed++
		}
	}
	if c.maxEntries > 0 {
		c.mu.Lock()
		c.compactLocked()
		c.mu.Unlock()
	}
	return removed
}

func (c *ResponseCache) Len() int {
	return c.entries.Count()
}

// compactLocked drops queue records whose entry was refreshed or removed.
// It runs once the queue doubles past the bound, so Put stays amortized O(1).
func (c *ResponseCache) compactLocked() {
	live := make([]insertion, 0, min(len(c.order), c.maxEntries))
	for _, rec := range c.order {
		value, ok := c.entries.Get(rec.key)
		if !ok {
			continue
		}
		if entry, ok := value.(domain.CacheEntry); ok && entry.CreatedAt.Equal(rec.createdAt) {
			live = append(live, rec)
		}
	}
	c.order = live
}

// removeIfSame leaves a concurrently refreshed entry in place.
func (c *ResponseCache) removeIfSame(fingerprint string, createdAt time.Time) bool {
	return c.entries.RemoveCb(fingerprint, func(_ string, v interface{}, exists bool) bool {
		if !exists {
			return false
		}
		current, ok := v.(domain.CacheEntry)
		return ok && current.CreatedAt.Equal(createdAt)
	})
}

func cloneAnswer(answer domain.GeneratedAnswer) domain.GeneratedAnswer {
	if answer.DocumentIDs != nil {
		answer.DocumentIDs = append([]string(nil), answer.DocumentIDs...)
	}
	return answer
}
