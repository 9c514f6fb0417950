package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// TTLCache is an in-process BytesCache. When full, an insert first drops
// expired entries and then the entry closest to expiry.
type TTLCache struct {
	mu       sync.RWMutex
	m        map[string]entry
	capacity int
	now      func() time.Time
}

// NewTTLCache creates a cache holding at most capacity entries; capacity
// <= 0 means unbounded.
func NewTTLCache(capacity int) *TTLCache {
	return &TTLCache{m: make(map[string]entry), capacity: capacity, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && c.capacity > 0 && len(c.m) >= c.capacity {
		c.evictLocked(now)
	}
	c.m[key] = entry{v: append([]byte(nil), value...), exp: exp}
	return nil
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *TTLCache) evictLocked(now time.Time) {
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
	if len(c.m) < c.capacity {
		return
	}
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, e := range c.m {
		if e.exp.IsZero() {
			continue
		}
		if !found || e.exp.Before(soon) || (e.exp.Equal(soon) && k < victim) {
			victim, soon, found = k, e.exp, true
		}
	}
	if !found {
		// only non-expiring entries; drop the smallest key for determinism
		for k := range c.m {
			if !found || k < victim {
				victim, found = k, true
			}
		}
	}
	delete(c.m, victim)
}
