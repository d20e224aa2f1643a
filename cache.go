package statcrab

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/statcrab/models"
)

// Weighted reports an estimate of a value's in-memory size in bytes, used
// for cache capacity accounting.
type Weighted interface {
	Weight() uint64
}

// entry is an immutable cache record. A refresh replaces the whole entry;
// readers holding the value are never affected by a later eviction.
type entry struct {
	value      Weighted
	weight     uint64
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a byte-weight-bounded TTL cache with per-key request coalescing.
// Concurrent callers for the same key attach to a single in-flight
// computation and observe its outcome; failed outcomes are never stored.
type Cache struct {
	maxWeight uint64

	mu      sync.Mutex
	entries map[string]*entry
	weight  uint64

	sf      singleflight.Group
	metrics *models.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewCache(ctx context.Context, maxWeight uint64, cleanupInterval time.Duration, logger *zap.Logger) *Cache {
	c := &Cache{
		maxWeight: maxWeight,
		entries:   make(map[string]*entry),
		metrics:   models.NewMetrics(),
		logger:    logger,
		tracer:    otel.Tracer("cache"),
	}

	go c.janitor(ctx, cleanupInterval)

	return c
}

// GetOrCompute returns the cached value for key or runs compute to produce
// it. At most one computation per key is in flight at any time. The value is
// stored with the given TTL only when compute succeeds, so a failed key is
// immediately retryable.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (Weighted, error)) (Weighted, error) {
	ctx, span := c.tracer.Start(ctx, "Cache.GetOrCompute", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if v, ok := c.lookup(key); ok {
		c.metrics.Hits.Inc()
		c.logger.Debug("Cache hit", zap.String("key", key))
		return v, nil
	}
	c.metrics.Misses.Inc()
	c.logger.Debug("Cache miss", zap.String("key", key))

	ch := c.sf.DoChan(key, func() (any, error) {
		// The computation is shared: a cancelled waiter must not abort the
		// fetch for everyone else, so it runs detached from the caller.
		// Deadlines are bounded per upstream call by the client itself.
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Weighted), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup enforces TTL at read time: a present-but-expired entry is a miss
// even if the janitor has not swept it yet.
func (c *Cache) lookup(key string) (Weighted, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key, e)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value Weighted, ttl time.Duration) {
	w := value.Weight()
	if w > c.maxWeight {
		c.logger.Warn("Value exceeds cache capacity, not cached",
			zap.String("key", key), zap.Uint64("weight", w))
		return
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}

	// Make room by evicting entries nearest expiry first.
	for c.weight+w > c.maxWeight && len(c.entries) > 0 {
		c.evictNearestExpiryLocked()
	}

	c.entries[key] = &entry{
		value:      value,
		weight:     w,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.weight += w
	c.metrics.Entries.Inc()
	c.metrics.Weight.Store(int64(c.weight))
}

func (c *Cache) evictNearestExpiryLocked() {
	var victimKey string
	var victim *entry
	for k, e := range c.entries {
		if victim == nil || e.expiresAt.Before(victim.expiresAt) {
			victimKey, victim = k, e
		}
	}
	if victim == nil {
		return
	}
	c.removeLocked(victimKey, victim)
	c.metrics.Evictions.Inc()
}

func (c *Cache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	c.weight -= e.weight
	c.metrics.Entries.Dec()
	c.metrics.Weight.Store(int64(c.weight))
}

func (c *Cache) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(k, e)
			c.metrics.Evictions.Inc()
		}
	}
}

// Metrics exposes the cache counters.
func (c *Cache) Metrics() *models.Metrics {
	return c.metrics
}

// WeightBytes returns the current total byte-weight.
func (c *Cache) WeightBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// ItemCount returns the number of resident entries, expired or not.
func (c *Cache) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
