// Package querycache is a client-side read-through cache for API queries.
// Keys are strings such as "users|page=1"; invalidating a prefix drops every
// matching entry and notifies subscribers of that prefix so they can refetch.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Loader func(ctx context.Context) (interface{}, error)

type subscription struct {
	prefix string
	fn     func(prefix string)
}

type Cache struct {
	entries *expirable.LRU[string, interface{}]

	mu     sync.Mutex
	subs   map[uint64]subscription
	nextID uint64
}

func New(size int, ttl time.Duration) *Cache {
	return &Cache{
		entries: expirable.NewLRU[string, interface{}](size, nil, ttl),
		subs:    map[uint64]subscription{},
	}
}

// Fetch returns the cached value for key or calls load and caches its result.
// Errors are not cached.
func (c *Cache) Fetch(ctx context.Context, key string, load Loader) (interface{}, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, v)
	return v, nil
}

// Fetch is the typed form of Cache.Fetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.entries.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.entries.Add(key, v)
	return v, nil
}

// Invalidate removes every entry whose key starts with prefix and notifies
// subscribers whose prefix overlaps it. It returns the number of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	removed := 0
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) && c.entries.Remove(k) {
			removed++
		}
	}

	c.mu.Lock()
	var notify []func(string)
	for _, s := range c.subs {
		if strings.HasPrefix(prefix, s.prefix) || strings.HasPrefix(s.prefix, prefix) {
			notify = append(notify, s.fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn(prefix)
	}
	return removed
}

// Subscribe registers fn for invalidations overlapping prefix. The returned
// function removes the subscription.
func (c *Cache) Subscribe(prefix string, fn func(prefix string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = subscription{prefix: prefix, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
