package cache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// flight is one in-progress computation. Late arrivals for the same key wait
// on done and share value/err instead of starting new work.
type flight struct {
	done  chan struct{}
	value []byte
	err   error
}

// Stats is a read-only snapshot of cache counters.
type Stats struct {
	L1Hits       int64  `json:"l1_hits"`
	L1Misses     int64  `json:"l1_misses"`
	L2Hits       int64  `json:"l2_hits"`
	L2Misses     int64  `json:"l2_misses"`
	Computations int64  `json:"computations"`
	Backend      string `json:"backend"`
}

// ContentCache fronts the configured backend (L2) with a bounded in-process
// tier (L1) and deduplicates concurrent computation per key.
type ContentCache struct {
	l1      *l1Cache
	backend Backend
	ttl     time.Duration

	mu       sync.Mutex
	inflight map[string]*flight

	l1Hits       atomic.Int64
	l1Misses     atomic.Int64
	l2Hits       atomic.Int64
	l2Misses     atomic.Int64
	computations atomic.Int64
}

func NewContentCache(backend Backend, l1Capacity int, ttl time.Duration) *ContentCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ContentCache{
		l1:       newL1Cache(l1Capacity, ttl),
		backend:  backend,
		ttl:      ttl,
		inflight: make(map[string]*flight),
	}
}

// GetOrCompute returns the cached value for key, computing it at most once
// process-wide on miss. The bool reports whether the value came from a cache
// tier. Backend failures are absorbed as misses; compute runs detached from
// the caller's context so a caller that gives up does not cancel work that
// other sessions may share.
func (c *ContentCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok := c.l1.get(key); ok {
		c.l1Hits.Add(1)
		return value, true, nil
	}
	c.l1Misses.Add(1)

	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Printf("cache backend get %s failed: %v", shortKey(key), err)
	}
	if ok {
		c.l2Hits.Add(1)
		c.l1.put(key, value)
		return value, true, nil
	}
	c.l2Misses.Add(1)

	c.mu.Lock()
	f, running := c.inflight[key]
	if !running {
		f = &flight{done: make(chan struct{})}
		c.inflight[key] = f
	}
	c.mu.Unlock()

	if !running {
		go c.run(context.WithoutCancel(ctx), key, f, compute)
	}

	select {
	case <-f.done:
		return f.value, false, f.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *ContentCache) run(ctx context.Context, key string, f *flight, compute func(ctx context.Context) ([]byte, error)) {
	c.computations.Add(1)
	f.value, f.err = compute(ctx)

	if f.err == nil {
		c.l1.put(key, f.value)
		if err := c.backend.Set(ctx, key, f.value, c.ttl); err != nil {
			log.Printf("cache backend set %s failed: %v", shortKey(key), err)
		}
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(f.done)
}

// Get reads through L1 then L2 without computing on miss.
func (c *ContentCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := c.l1.get(key); ok {
		c.l1Hits.Add(1)
		return value, true
	}
	c.l1Misses.Add(1)

	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Printf("cache backend get %s failed: %v", shortKey(key), err)
		c.l2Misses.Add(1)
		return nil, false
	}
	if !ok {
		c.l2Misses.Add(1)
		return nil, false
	}
	c.l2Hits.Add(1)
	c.l1.put(key, value)
	return value, true
}

// Set writes through both tiers with the configured TTL.
func (c *ContentCache) Set(ctx context.Context, key string, value []byte) {
	c.l1.put(key, value)
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		log.Printf("cache backend set %s failed: %v", shortKey(key), err)
	}
}

func (c *ContentCache) Stats() Stats {
	return Stats{
		L1Hits:       c.l1Hits.Load(),
		L1Misses:     c.l1Misses.Load(),
		L2Hits:       c.l2Hits.Load(),
		L2Misses:     c.l2Misses.Load(),
		Computations: c.computations.Load(),
		Backend:      c.backend.Name(),
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
