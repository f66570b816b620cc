package dataflows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(t.TempDir(), time.Minute, true)

	in := map[string]string{"hello": "world"}
	require.NoError(t, cache.Set("test", "roundtrip", "key", in))

	var out map[string]string
	require.True(t, cache.Get("test", "roundtrip", "key", &out))
	assert.Equal(t, in, out)
}

func TestFileCacheMissOnDifferentParams(t *testing.T) {
	cache := NewFileCache(t.TempDir(), time.Minute, true)
	require.NoError(t, cache.Set("test", "m", map[string]int{"a": 1}, "value"))

	var out string
	assert.False(t, cache.Get("test", "m", map[string]int{"a": 2}, &out))
}

func TestFileCacheDisabled(t *testing.T) {
	cache := NewFileCache(t.TempDir(), time.Minute, false)
	require.NoError(t, cache.Set("test", "off", "key", "value"))

	var out string
	assert.False(t, cache.Get("test", "off", "key", &out))
}

func TestFileCacheExpiry(t *testing.T) {
	cache := NewFileCache(t.TempDir(), -time.Second, true)
	require.NoError(t, cache.Set("test", "exp", "key", "value"))

	var out string
	assert.False(t, cache.Get("test", "exp", "key", &out), "expired entries must miss")
}
