// Package cache provides the process-wide read-through cache.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

// Cache implements domain.Cache on top of ttlcache.
// Entries never outlive their TTL. Concurrent misses on one key share a
// single compute call when single-flight is enabled.
type Cache struct {
	items  *ttlcache.Cache[string, any]
	logger *slog.Logger
	group  singleflight.Group

	// generation is bumped by every invalidation. A compute that started
	// under an older generation does not populate the cache.
	mu           sync.Mutex
	inflight     map[string]int
	generation   uint64
	defaultTTL   time.Duration
	singleFlight bool
}

// Ensure Cache implements domain.Cache.
var _ domain.Cache = (*Cache)(nil)

// New creates a cache and starts its expiry loop.
func New(cfg domain.CacheConfig, logger *slog.Logger) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	items := ttlcache.New(
		ttlcache.WithTTL[string, any](ttl),
		ttlcache.WithDisableTouchOnHit[string, any](),
	)
	go items.Start()

	return &Cache{
		items:        items,
		logger:       logger,
		inflight:     make(map[string]int),
		defaultTTL:   ttl,
		singleFlight: cfg.SingleFlight,
	}
}

// GetOrCompute returns the cached value for key or computes and stores it.
// A non-positive ttl uses the configured default.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	if item := c.items.Get(key); item != nil {
		metrics.RecordCacheLookup(metrics.ResultHit)
		return item.Value(), nil
	}
	metrics.RecordCacheLookup(metrics.ResultMiss)

	if !c.singleFlight {
		return c.fill(ctx, key, ttl, compute)
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.track(key, 1)
		defer c.track(key, -1)
		return c.fill(ctx, key, ttl, compute)
	})
	if shared {
		c.logger.Debug("cache fill shared", "key", key)
	}
	return v, err
}

func (c *Cache) fill(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	gen := c.currentGeneration()

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.items.Set(key, v, ttl)
	} else {
		c.logger.Debug("cache fill discarded after invalidation", "key", key)
	}
	return v, nil
}

func (c *Cache) track(key string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key] += delta
	if c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Invalidate deletes key, or every key matching keyOrPattern when it
// contains domain.CacheWildcard. A pattern is anchored at the start of the
// key only; each * matches any run of characters.
func (c *Cache) Invalidate(keyOrPattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	if !strings.Contains(keyOrPattern, domain.CacheWildcard) {
		if c.items.Has(keyOrPattern) {
			c.items.Delete(keyOrPattern)
			metrics.RecordCacheInvalidation(1)
		}
		c.group.Forget(keyOrPattern)
		return
	}

	segments := strings.Split(keyOrPattern, domain.CacheWildcard)
	n := 0
	for _, key := range c.items.Keys() {
		if matchPattern(key, segments) {
			c.items.Delete(key)
			n++
		}
	}
	for key := range c.inflight {
		if matchPattern(key, segments) {
			c.group.Forget(key)
		}
	}
	metrics.RecordCacheInvalidation(n)
	c.logger.Debug("cache pattern invalidated", "pattern", keyOrPattern, "removed", n)
}

// matchPattern reports whether key starts with segments[0] and contains the
// remaining segments in order after it.
func matchPattern(key string, segments []string) bool {
	rest, ok := strings.CutPrefix(key, segments[0])
	if !ok {
		return false
	}
	for _, seg := range segments[1:] {
		i := strings.Index(rest, seg)
		if i < 0 {
			return false
		}
		rest = rest[i+len(seg):]
	}
	return true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	metrics.RecordCacheInvalidation(c.items.Len())
	c.items.DeleteAll()
	for key := range c.inflight {
		c.group.Forget(key)
	}
}

// Len returns the number of held entries, including not yet swept ones.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Close stops the expiry loop.
func (c *Cache) Close() {
	c.items.Stop()
}
