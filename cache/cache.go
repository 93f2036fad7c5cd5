package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after a TTL.
type Cache[V any] struct {
	lru *lru.Cache[string, *entry[V]]
	ttl time.Duration
	now func() time.Time
}

func New[V any](size int, ttl time.Duration) (*Cache[V], error) {
	l, err := lru.New[string, *entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.data, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.lru.Add(key, &entry[V]{
		data:      val,
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
