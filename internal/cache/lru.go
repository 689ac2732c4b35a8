// Package cache provides caching utilities for chart results.
package cache

import (
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// ChartCache provides thread-safe LRU caching of chart results keyed by the
// canonical form of the condition that produced them. Entries expire after
// a TTL since chart buckets slide with time.
type ChartCache struct {
	cache *expirable.LRU[string, []netquery.ChartResult]
}

// NewChartCache creates a new LRU cache holding at most maxItems charts for
// up to ttl each. A non-positive maxItems disables the size bound.
func NewChartCache(maxItems int, ttl time.Duration) *ChartCache {
	if maxItems < 0 {
		maxItems = 0
	}
	return &ChartCache{
		cache: expirable.NewLRU[string, []netquery.ChartResult](maxItems, nil, ttl),
	}
}

// Get retrieves the chart cached for cond.
// Returns the chart and true if found, nil and false otherwise.
func (c *ChartCache) Get(cond netquery.Condition) ([]netquery.ChartResult, bool) {
	chart, ok := c.cache.Get(cond.Key())
	if !ok {
		return nil, false
	}
	return slices.Clone(chart), true
}

// Put adds or updates the chart for cond.
func (c *ChartCache) Put(cond netquery.Condition, chart []netquery.ChartResult) {
	c.cache.Add(cond.Key(), slices.Clone(chart))
}

// Purge drops all cached charts.
func (c *ChartCache) Purge() {
	c.cache.Purge()
}

// Len returns the current number of items in the cache.
func (c *ChartCache) Len() int {
	return c.cache.Len()
}
