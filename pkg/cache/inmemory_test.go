package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFromCache(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("stats", map[string]int{"forex": 3}, time.Minute)
	c.Set("count", 42, time.Minute)

	stats, ok := GetFromCache[map[string]int](c, "stats")
	assert.True(t, ok)
	assert.Equal(t, 3, stats["forex"])

	_, ok = GetFromCache[string](c, "count")
	assert.False(t, ok, "wrong type must miss")

	_, ok = GetFromCache[int](c, "missing")
	assert.False(t, ok)

	c.Delete("count")
	_, ok = GetFromCache[int](c, "count")
	assert.False(t, ok)

	_, ok = GetFromCache[int](nil, "count")
	assert.False(t, ok)
}

func TestNewCache_Independent(t *testing.T) {
	a := NewCache(time.Minute, time.Minute)
	b := NewCache(time.Minute, time.Minute)
	a.Set("k", 1, time.Minute)

	_, ok := b.Get("k")
	assert.False(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	loads := 0
	load := func() (int, error) {
		loads++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(c, "answer", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, loads)

	_, err := GetOrLoad(c, "broken", time.Minute, func() (int, error) { return 0, errors.New("db down") })
	assert.Error(t, err)
	_, ok := c.Get("broken")
	assert.False(t, ok, "errors are not cached")

	v, err := GetOrLoad[int](nil, "answer", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, loads)
}
