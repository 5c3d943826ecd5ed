package service

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// SearchCache holds public search pages for a short TTL. A nil *SearchCache
// caches nothing.
//
// Every Flush starts a new generation. A page read from the store under an
// older generation is never stored, so a search that overlaps a decision
// cannot put a pre-decision page back into the cache.
type SearchCache struct {
	cache *gocache.Cache

	mu         sync.Mutex
	generation uint64
}

// NewSearchCache returns nil when ttl is not positive.
func NewSearchCache(ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		return nil
	}
	return &SearchCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *SearchCache) Get(key string) ([]domain.Donor, bool) {
	if c == nil {
		return nil, false
	}
	value, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	donors, ok := value.([]domain.Donor)
	if !ok {
		return nil, false
	}
	return append([]domain.Donor(nil), donors...), true
}

// Generation must be read before the store query whose result is passed to Set.
func (c *SearchCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores donors under key unless a Flush happened since generation was
// read. Reports whether the page was stored.
func (c *SearchCache) Set(key string, generation uint64, donors []domain.Donor) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.cache.SetDefault(key, append([]domain.Donor(nil), donors...))
	return true
}

// Flush drops every cached page. Called whenever public visibility changes.
func (c *SearchCache) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Flush()
}

func (c *SearchCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}
