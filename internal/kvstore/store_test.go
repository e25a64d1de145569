package kvstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := OpenFile(path, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, SetJSON(s, "cart", snapshot{Name: "tacos", Count: 3}))

	got, ok, err := GetJSON[snapshot](s, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot{Name: "tacos", Count: 3}, got)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := OpenFile(path, 0)
	require.NoError(t, err)
	require.NoError(t, SetJSON(s, "cart", snapshot{Name: "tortas", Count: 1}))
	require.NoError(t, s.Close())

	s2, err := OpenFile(path, 0)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := GetJSON[snapshot](s2, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tortas", got.Name)
}

func TestFileStore_GetMissing(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "state.json"), 0)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is fine.
	require.NoError(t, s.Remove("nope"))
}

func TestFileStore_WatchSeesExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s, err := OpenFile(path, 10*time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx, "cart")
	require.NoError(t, err)

	// Another process: a second store over the same file.
	other, err := OpenFile(path, 0)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, SetJSON(other, "cart", snapshot{Name: "elote", Count: 2}))

	select {
	case raw := <-ch:
		var got snapshot
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "elote", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never saw the external write")
	}
}

func TestFileStore_WatchIgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := OpenFile(path, 10*time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx, "cart")
	require.NoError(t, err)

	// The file round-trips through an indented encoding; give the poller
	// several ticks to prove the re-read never echoes back as a change.
	require.NoError(t, SetJSON(s, "cart", snapshot{Name: "own", Count: 1}))

	select {
	case raw := <-ch:
		t.Fatalf("own write delivered to watcher: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}

	// A real external write afterwards is still detected.
	other, err := OpenFile(s.path, 0)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, SetJSON(other, "cart", snapshot{Name: "external", Count: 2}))

	select {
	case raw := <-ch:
		var got snapshot
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "external", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("external write after own write never delivered")
	}
}

func TestFileStore_ClosedOperationsFail(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "state.json"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get("cart")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set("cart", []byte("{}")), ErrClosed)
}

func TestMemStore_InjectReachesWatcher(t *testing.T) {
	s := NewMem()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx, "cart")
	require.NoError(t, err)

	require.NoError(t, s.Set("cart", []byte(`"local"`)))
	s.Inject("cart", []byte(`"remote"`))

	select {
	case raw := <-ch:
		assert.Equal(t, `"remote"`, string(raw))
	case <-time.After(time.Second):
		t.Fatal("inject never delivered")
	}

	// Local writes stay silent.
	require.NoError(t, s.Set("cart", []byte(`"local2"`)))
	select {
	case raw := <-ch:
		t.Fatalf("local write delivered: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}
