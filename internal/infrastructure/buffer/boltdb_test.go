package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "buffer.db"), "audit")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_EnqueueBatchRemove(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Enqueue(Item{
			ID:        id,
			Data:      json.RawMessage(`{"n":1}`),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 3, size)

	batch, err := store.GetBatch(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "c", batch[0].ID)
	require.Equal(t, "a", batch[1].ID)
	require.Equal(t, EntityAudit, batch[0].Entity)

	require.NoError(t, store.Remove(batch[0]))
	size, err = store.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)
}

func TestStore_RequeueMovesToBack(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, store.Enqueue(Item{ID: "first", Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{ID: "second", Timestamp: base.Add(time.Second)}))

	batch, err := store.GetBatch(1)
	require.NoError(t, err)
	item := batch[0]
	item.Retries++
	require.NoError(t, store.Requeue(item))

	batch, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "second", batch[0].ID)
	require.Equal(t, "first", batch[1].ID)
	require.Equal(t, 1, batch[1].Retries)
}

func TestStore_Cleanup(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.Enqueue(Item{ID: "old", Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Enqueue(Item{ID: "fresh", Timestamp: now}))

	removed, err := store.Cleanup(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "fresh", batch[0].ID)
}

func TestStore_NilIsNotOpen(t *testing.T) {
	var store *Store
	require.Error(t, store.Enqueue(Item{}))
	_, err := store.Size()
	require.Error(t, err)
	require.NoError(t, store.Close())
}
