package discovery

import (
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Cache defaults.
const (
	DefaultCacheTTL        = 30 * time.Minute
	DefaultCacheMaxEntries = 100
)

// cachedSearch is a stored search outcome. Papers are private copies.
type cachedSearch struct {
	papers  []*domain.Paper
	metrics SearchMetrics
}

// SearchCache keeps recent search results in memory for a fixed TTL, evicting
// the oldest entry once maxEntries is reached.
type SearchCache struct {
	cache      *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

// NewSearchCache creates a cache. Non-positive arguments use the defaults.
func NewSearchCache(ttl time.Duration, maxEntries int) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &SearchCache{
		cache:      gocache.New(ttl, ttl/2),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// CacheKey builds the key for a search. Query case and surrounding whitespace
// and source order do not affect the key.
func CacheKey(query string, sources []domain.SourceType, maxResults int, smart bool) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	sort.Strings(names)
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s|%s|%d|%t", q, strings.Join(names, ","), maxResults, smart)
}

// Get returns copies of the cached papers and the metrics of the search that
// produced them.
func (c *SearchCache) Get(key string) ([]*domain.Paper, SearchMetrics, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, SearchMetrics{}, false
	}
	entry := v.(*cachedSearch)
	return clonePapers(entry.papers), entry.metrics, true
}

// Set stores copies of papers under key.
func (c *SearchCache) Set(key string, papers []*domain.Paper, metrics SearchMetrics) {
	if _, found := c.cache.Get(key); !found && c.cache.ItemCount() >= c.maxEntries {
		c.evictOldest()
	}
	c.cache.Set(key, &cachedSearch{papers: clonePapers(papers), metrics: metrics}, c.ttl)
}

// Len returns the number of cached searches, including expired ones not yet
// cleaned up.
func (c *SearchCache) Len() int {
	return c.cache.ItemCount()
}

// evictOldest deletes the entry closest to expiry. All entries share one TTL,
// so that is the oldest insert.
func (c *SearchCache) evictOldest() {
	var (
		oldestKey string
		oldestExp int64
	)
	for k, item := range c.cache.Items() {
		if oldestKey == "" || item.Expiration < oldestExp {
			oldestKey, oldestExp = k, item.Expiration
		}
	}
	if oldestKey != "" {
		c.cache.Delete(oldestKey)
	}
}

func clonePapers(papers []*domain.Paper) []*domain.Paper {
	out := make([]*domain.Paper, len(papers))
	for i, p := range papers {
		out[i] = p.Clone()
	}
	return out
}
