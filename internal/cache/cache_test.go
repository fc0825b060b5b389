package cache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/cache"
)

func TestReadThroughLoad(t *testing.T) {
	c := cache.New[int64, string]()
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := c.Load(1, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = c.Load(1, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls, "second load should be served from cache")
}

func TestReadThroughDoesNotCacheErrors(t *testing.T) {
	c := cache.New[int64, string]()
	boom := errors.New("boom")

	_, err := c.Load(1, func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestReadThroughClear(t *testing.T) {
	c := cache.New[string, int]()
	c.Put("a", 1)
	c.Put("b", 2)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
