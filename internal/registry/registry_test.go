package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	r := New[string]()
	h, id := r.Insert("hello")
	require.NotEqual(t, id.String(), "")

	v, ok := r.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestRemoveInvalidatesHandle(t *testing.T) {
	r := New[string]()
	h, _ := r.Insert("a")
	r.Remove(h)

	_, ok := r.Lookup(h)
	assert.False(t, ok)
}

func TestReusedSlotInvalidatesOldHandle(t *testing.T) {
	r := New[string]()
	h1, _ := r.Insert("a")
	r.Remove(h1)

	h2, _ := r.Insert("b")

	_, ok := r.Lookup(h1)
	assert.False(t, ok, "a stale handle must not resolve to the slot's new occupant")

	v2, ok := r.Lookup(h2)
	require.True(t, ok)
	assert.Equal(t, "b", v2)
}

func TestSnapshotReflectsLiveEntriesOnly(t *testing.T) {
	r := New[string]()
	h1, _ := r.Insert("a")
	_, _ = r.Insert("b")
	r.Remove(h1)

	snap := r.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "b", snap[0])
}

func TestLenTracksLiveCount(t *testing.T) {
	r := New[int]()
	assert.Equal(t, 0, r.Len())
	h, _ := r.Insert(1)
	assert.Equal(t, 1, r.Len())
	r.Remove(h)
	assert.Equal(t, 0, r.Len())
}
