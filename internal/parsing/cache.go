package parsing

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feedvalidator/internal/core/types"
)

// Cache interns parsed values of one field so repeated values share one copy.
// It belongs to a single loader and is not safe for concurrent use.
type Cache struct {
	values  map[any]any
	lookups int
	hits    int
}

// CacheStats reports how effective a Cache was.
type CacheStats struct {
	Lookups int
	Hits    int
	Size    int
}

// HitRatio returns hits per lookup, 0 when unused.
func (s CacheStats) HitRatio() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups)
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{values: make(map[any]any)}
}

// Intern returns the first value equal to v seen by this cache, or v itself.
func (c *Cache) Intern(v any) any {
	c.lookups++
	k := cacheKey(v)
	if got, ok := c.values[k]; ok {
		c.hits++
		return got
	}
	c.values[k] = v
	return v
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Lookups: c.lookups, Hits: c.hits, Size: len(c.values)}
}

// cacheKey maps values that are not safely comparable to strings.
// Decimal keys keep the scale so 2.5 and 2.50 stay distinct.
func cacheKey(v any) any {
	switch x := v.(type) {
	case types.Decimal:
		return "d:" + types.DecimalKey(x)
	case language.Tag:
		return "l:" + x.String()
	case currency.Unit:
		return "c:" + x.String()
	}
	return v
}
