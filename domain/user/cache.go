package user

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_user_cache_hits_total",
		Help: "User list cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_user_cache_misses_total",
		Help: "User list cache misses.",
	})
)

type page struct {
	users []User
	total int
}

// Cache holds user pages and the role list with a TTL. Any bulk operation or
// import that changes users purges it through Invalidate.
type Cache struct {
	pages *expirable.LRU[string, page]
	roles *expirable.LRU[string, []Role]
}

func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		pages: expirable.NewLRU[string, page](size, nil, ttl),
		roles: expirable.NewLRU[string, []Role](1, nil, ttl),
	}
}

func (c *Cache) getPage(key string) (page, bool) {
	if c == nil {
		return page{}, false
	}
	p, ok := c.pages.Get(key)
	if ok {
		cacheHitsTotal.Inc()
	} else {
		cacheMissesTotal.Inc()
	}
	return p, ok
}

func (c *Cache) setPage(key string, p page) {
	if c != nil {
		c.pages.Add(key, p)
	}
}

func (c *Cache) getRoles() ([]Role, bool) {
	if c == nil {
		return nil, false
	}
	return c.roles.Get("roles")
}

func (c *Cache) setRoles(roles []Role) {
	if c != nil {
		c.roles.Add("roles", roles)
	}
}

// Invalidate drops every cached page and the role list.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.pages.Purge()
	c.roles.Purge()
}
