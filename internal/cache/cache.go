package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// RemoteStore is the optional L2 layer (Redis in production)
type RemoteStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
}

// Cache provides a multi-layer caching system with L1 (in-memory) and L2 (remote)
type Cache struct {
	l1           *ristretto.Cache
	l2           RemoteStore
	singleflight singleflight.Group
	ttl          time.Duration

	// Metrics
	l1Hits   atomic.Uint64
	l1Misses atomic.Uint64
	l2Hits   atomic.Uint64
	l2Misses atomic.Uint64
	fetches  atomic.Uint64
}

// Config for cache initialization
type Config struct {
	L1MaxCost     int64         // Max cost for L1 cache (default: 1MB)
	L1NumCounters int64         // Number of keys to track frequency (default: 10k)
	DefaultTTL    time.Duration // Default TTL for cache entries
}

// New creates a cache. l2 may be nil.
func New(l2 RemoteStore, cfg Config) (*Cache, error) {
	if cfg.L1MaxCost == 0 {
		cfg.L1MaxCost = 1 << 20
	}
	if cfg.L1NumCounters == 0 {
		cfg.L1NumCounters = 10000
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 30 * time.Second
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.L1NumCounters,
		MaxCost:     cfg.L1MaxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}

	return &Cache{
		l1:  l1,
		l2:  l2,
		ttl: cfg.DefaultTTL,
	}, nil
}

// Get returns the cached value for key, falling back L1 -> L2 -> fetch.
// Concurrent fetches for one key share a single call. Errors are not cached.
func (c *Cache) Get(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	if val, found := c.l1.Get(key); found {
		c.l1Hits.Add(1)
		return val.(string), nil
	}
	c.l1Misses.Add(1)

	if c.l2 != nil {
		if val, err := c.l2.Get(ctx, key); err == nil && val != "" {
			c.l2Hits.Add(1)
			c.l1.SetWithTTL(key, val, 1, c.ttl)
			return val, nil
		}
		c.l2Misses.Add(1)
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		c.fetches.Add(1)
		return fetch(ctx)
	})
	if err != nil {
		return "", err
	}

	s := val.(string)
	c.Set(ctx, key, s)
	return s, nil
}

// Set stores a value in both layers
func (c *Cache) Set(ctx context.Context, key, value string) {
	c.l1.SetWithTTL(key, value, 1, c.ttl)
	c.l1.Wait()

	if c.l2 != nil {
		_ = c.l2.Set(ctx, key, value, c.ttl)
	}
}

// Metrics holds cache performance data
type Metrics struct {
	L1Hits        uint64
	L1Misses      uint64
	L2Hits        uint64
	L2Misses      uint64
	Fetches       uint64
	L1KeysEvicted uint64
}

// GetMetrics returns cache performance metrics
func (c *Cache) GetMetrics() Metrics {
	return Metrics{
		L1Hits:        c.l1Hits.Load(),
		L1Misses:      c.l1Misses.Load(),
		L2Hits:        c.l2Hits.Load(),
		L2Misses:      c.l2Misses.Load(),
		Fetches:       c.fetches.Load(),
		L1KeysEvicted: c.l1.Metrics.KeysEvicted(),
	}
}

// Close gracefully shuts down the cache
func (c *Cache) Close() {
	c.l1.Close()
}
