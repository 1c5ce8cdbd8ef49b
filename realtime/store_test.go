package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoader(calls *int) Loader[int] {
	return func(ctx context.Context) (int, error) {
		*calls++
		return *calls * 10, nil
	}
}

func TestStore_CachesUntilWatchedTableChanges(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	store := NewStore("animals", countingLoader(&calls), 0).Watch(hub, "sacrifice_animals")
	defer store.Close()

	v, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, v, "second read should come from cache")
	assert.Equal(t, 1, calls)

	before := store.Version()
	hub.Publish(Event{Table: "stage_metrics", Type: EventUpdate})
	assert.Equal(t, before, store.Version(), "unrelated table must not invalidate")

	hub.Publish(Event{Table: "sacrifice_animals", Type: EventUpdate})
	assert.Greater(t, store.Version(), before)

	v, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, calls)
}

func TestStore_LoadErrorIsNotCached(t *testing.T) {
	fail := true
	store := NewStore("stages", func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("backend down")
		}
		return "ok", nil
	}, 0)

	_, err := store.Get(context.Background())
	assert.EqualError(t, err, "backend down")

	fail = false
	v, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestStore_MaxAgeForcesRefresh(t *testing.T) {
	calls := 0
	store := NewStore("animals", countingLoader(&calls), time.Millisecond)

	_, err := store.Get(context.Background())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestStore_AgingOutChangesVersion(t *testing.T) {
	calls := 0
	store := NewStore("stages", countingLoader(&calls), 10*time.Millisecond)

	_, err := store.Get(context.Background())
	require.NoError(t, err)
	before := store.Version()
	assert.Equal(t, before, store.Version(), "fresh value keeps its version")

	time.Sleep(20 * time.Millisecond)
	after := store.Version()
	assert.Greater(t, after, before, "a value past maxAge must not keep answering not-modified")

	v, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, after, store.Version(), "reload after aging out does not bump twice")
}

func TestStore_CloseStopsWatching(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	store := NewStore("animals", countingLoader(&calls), 0).Watch(hub, "sacrifice_animals")

	store.Close()
	before := store.Version()
	hub.Publish(Event{Table: "sacrifice_animals", Type: EventInsert})

	assert.Equal(t, before, store.Version())
	assert.Equal(t, 0, hub.Subscribers("sacrifice_animals"))
}
