package ml

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_ExactBits(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2, math.Nextafter(3, 4)}

	assert.Equal(t, cacheKey(a, false), cacheKey([]float64{1, 2, 3}, false))
	assert.NotEqual(t, cacheKey(a, false), cacheKey(b, false))
	assert.NotEqual(t, cacheKey(a, false), cacheKey(a, true))
}

func TestPredictionCache_Disabled(t *testing.T) {
	c := NewPredictionCache(0, time.Minute)
	assert.Nil(t, c)

	c.put("k", 0, Result{}, Attribution{})
	_, ok := c.get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPredictionCache_EvictsOldest(t *testing.T) {
	c := NewPredictionCache(2, time.Minute)
	c.put("a", 1, Result{Confidence: 1}, Attribution{})
	time.Sleep(time.Millisecond)
	c.put("b", 2, Result{Confidence: 2}, Attribution{})
	time.Sleep(time.Millisecond)
	c.put("c", 3, Result{Confidence: 3}, Attribution{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.get("a")
	assert.False(t, ok)
	got, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, got.Result.Confidence)
}

func TestPredictionCache_Expiry(t *testing.T) {
	c := NewPredictionCache(10, 20*time.Millisecond)
	c.put("a", 1, Result{}, Attribution{})
	_, ok := c.get("a")
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.get("a")
	assert.False(t, ok)

	c.clean()
	assert.Equal(t, 0, c.Len())
}
