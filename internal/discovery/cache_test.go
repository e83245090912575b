package discovery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("  Graph   Neural Nets ", []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeCORE}, 10, true)
	b := CacheKey("graph neural nets", []domain.SourceType{domain.SourceTypeCORE, domain.SourceTypeArXiv}, 10, true)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, CacheKey("graph neural nets", []domain.SourceType{domain.SourceTypeArXiv}, 10, true))
	assert.NotEqual(t, a, CacheKey("graph neural nets", []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeCORE}, 11, true))
	assert.NotEqual(t, a, CacheKey("graph neural nets", []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeCORE}, 10, false))
}

func TestSearchCache(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewSearchCache(0, 0)
		assert.Equal(t, DefaultCacheTTL, c.ttl)
		assert.Equal(t, DefaultCacheMaxEntries, c.maxEntries)
	})

	t.Run("stores copies", func(t *testing.T) {
		c := NewSearchCache(time.Minute, 5)
		original := &domain.Paper{Title: "Original", Citations: domain.IntPtr(1)}

		c.Set("k", []*domain.Paper{original}, SearchMetrics{SearchID: "s1", TotalResults: 1})
		original.Title = "Mutated"

		papers, metrics, ok := c.Get("k")
		require.True(t, ok)
		require.Len(t, papers, 1)
		assert.Equal(t, "Original", papers[0].Title)
		assert.Equal(t, "s1", metrics.SearchID)

		papers[0].Title = "Mutated again"
		again, _, _ := c.Get("k")
		assert.Equal(t, "Original", again[0].Title)
	})

	t.Run("miss", func(t *testing.T) {
		c := NewSearchCache(time.Minute, 5)
		_, _, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("expires", func(t *testing.T) {
		c := NewSearchCache(20*time.Millisecond, 5)
		c.Set("k", nil, SearchMetrics{})
		time.Sleep(40 * time.Millisecond)
		_, _, ok := c.Get("k")
		assert.False(t, ok)
	})

	t.Run("evicts oldest at capacity", func(t *testing.T) {
		c := NewSearchCache(time.Minute, 3)
		for i := range 3 {
			c.Set(fmt.Sprintf("k%d", i), nil, SearchMetrics{})
			time.Sleep(2 * time.Millisecond)
		}

		c.Set("k3", nil, SearchMetrics{})

		assert.Equal(t, 3, c.Len())
		_, _, ok := c.Get("k0")
		assert.False(t, ok)
		_, _, ok = c.Get("k3")
		assert.True(t, ok)
	})

	t.Run("overwrite does not evict", func(t *testing.T) {
		c := NewSearchCache(time.Minute, 2)
		c.Set("a", nil, SearchMetrics{})
		c.Set("b", nil, SearchMetrics{})
		c.Set("b", nil, SearchMetrics{TotalResults: 2})

		_, _, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})
}
