package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open("", slog.Default(), WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_StoreGetRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "change_1", []byte("payload"), "sync_queue", 0))

	got, err := s.Get(ctx, "change_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, s.Remove(ctx, "change_1"))

	_, err = s.Get(ctx, "change_1")
	assert.ErrorIs(t, err, ErrNotFound)

	// повторное удаление не ошибка
	assert.NoError(t, s.Remove(ctx, "change_1"))
}

func TestStore_Scan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "change_a", []byte("a"), "sync_queue", time.Hour))
	require.NoError(t, s.Store(ctx, "change_b", []byte("b"), "sync_queue", time.Hour))
	require.NoError(t, s.Store(ctx, "last_sync_time", []byte("t"), "sync_meta", 0))

	got, err := s.Scan(ctx, "change_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"change_a": []byte("a"),
		"change_b": []byte("b"),
	}, got)
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "change_a", []byte("abc"), "sync_queue", 0))
	require.NoError(t, s.Store(ctx, "change_b", []byte("de"), "sync_queue", 0))
	require.NoError(t, s.Store(ctx, "last_sync_time", []byte("x"), "sync_meta", 0))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.ItemCount)
	assert.Equal(t, int64(6), st.TotalSize)
	assert.Equal(t, 2, st.Categories["sync_queue"])
	assert.Equal(t, 1, st.Categories["sync_meta"])
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Store(ctx, "k", []byte("v"), "c", 0), context.Canceled)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, slog.Default(), WithSyncWrites())
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "change_x", []byte("durable"), "sync_queue", 0))
	require.NoError(t, s.Close())

	s, err = Open(dir, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "change_x")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
}
