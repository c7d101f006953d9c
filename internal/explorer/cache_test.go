package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheNormalizesKeys(t *testing.T) {
	c := NewCache()
	c.Store("Linear  Algebra", []string{"vectors"})

	got, ok := c.Lookup("linear algebra")
	require.True(t, ok)
	assert.Equal(t, []string{"vectors"}, got)
}

func TestCacheMiss(t *testing.T) {
	c := NewCache()
	_, ok := c.Lookup("nothing here")
	assert.False(t, ok)
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	c := NewCache()
	c.Store("calculus", []string{"algebra", "functions"})

	snap := c.Snapshot()
	snap["calculus"][0] = "mutated"

	got, ok := c.Lookup("calculus")
	require.True(t, ok)
	assert.Equal(t, "algebra", got[0], "snapshot mutation must not leak into the cache")
}

func TestCacheRestore(t *testing.T) {
	c := NewCache()
	c.Restore(map[string][]string{
		"Calculus": {"algebra"},
		"topology": {"set theory", "metric spaces"},
	})

	assert.Equal(t, 2, c.Len())
	got, ok := c.Lookup("calculus")
	require.True(t, ok)
	assert.Equal(t, []string{"algebra"}, got)
}
