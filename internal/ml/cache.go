package ml

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PredictionCache caches recent results keyed by the exact bits of the
// imputed row.
type PredictionCache struct {
	mu      sync.RWMutex
	cache   map[string]*CachedPrediction
	maxSize int
	ttl     time.Duration
}

type CachedPrediction struct {
	Margin      float64
	Result      Result
	Attribution Attribution
	Timestamp   time.Time
}

// NewPredictionCache returns nil when caching is disabled.
func NewPredictionCache(maxSize int, ttl time.Duration) *PredictionCache {
	if maxSize <= 0 || ttl <= 0 {
		return nil
	}
	return &PredictionCache{
		cache:   make(map[string]*CachedPrediction),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// cacheKey formats the float bits so that equal keys mean bit-identical rows.
func cacheKey(row []float64, withAttribution bool) string {
	var b strings.Builder
	b.Grow(len(row)*17 + 2)
	for _, v := range row {
		b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
		b.WriteByte('_')
	}
	if withAttribution {
		b.WriteByte('a')
	}
	return b.String()
}

func (c *PredictionCache) get(key string) (*CachedPrediction, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cached, ok := c.cache[key]; ok {
		if time.Since(cached.Timestamp) < c.ttl {
			return cached, true
		}
	}
	return nil, false
}

func (c *PredictionCache) put(key string, margin float64, result Result, attr Attribution) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		// Remove oldest entry
		var oldestKey string
		var oldestTime time.Time
		for k, v := range c.cache {
			if oldestTime.IsZero() || v.Timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.Timestamp
			}
		}
		delete(c.cache, oldestKey)
	}

	c.cache[key] = &CachedPrediction{
		Margin:      margin,
		Result:      result,
		Attribution: attr,
		Timestamp:   time.Now(),
	}
}

// clean removes expired entries.
func (c *PredictionCache) clean() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, cached := range c.cache {
		if now.Sub(cached.Timestamp) > c.ttl {
			delete(c.cache, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
