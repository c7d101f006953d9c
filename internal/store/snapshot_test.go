package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	cache := map[string][]string{
		"calculus": {"algebra", "functions"},
		"algebra":  {},
	}
	require.NoError(t, s.Save("session-1", cache))

	got, err := s.LoadSession("session-1")
	require.NoError(t, err)
	assert.Equal(t, cache, got)
}

func TestLoadLatestPicksNewestSession(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save("session-1", map[string][]string{"calculus": {"algebra"}}))
	require.NoError(t, s.Save("session-2", map[string][]string{"topology": {"set theory"}}))

	got, err := s.LoadLatest()
	require.NoError(t, err)
	assert.Contains(t, got, "topology")
	assert.NotContains(t, got, "calculus")
}

func TestLoadLatestEmptyStore(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadLatest()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveIsUpsert(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save("session-1", map[string][]string{"calculus": {"algebra"}}))
	require.NoError(t, s.Save("session-1", map[string][]string{"calculus": {"algebra", "limits"}}))

	got, err := s.LoadSession("session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "limits"}, got["calculus"])
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save("session-1", map[string][]string{"a": {"b"}}))
	require.NoError(t, s.Save("session-2", map[string][]string{"c": {"d"}}))

	sessions, err := s.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"session-2", "session-1"}, sessions)
}
