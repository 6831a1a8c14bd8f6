package saves

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savesync/internal/utils/checksum"
)

func managers(t *testing.T) map[string]Manager {
	t.Helper()

	sqlite, err := NewSQLiteManager(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Manager{
		"sqlite": sqlite,
		"memory": NewMemoryManager(),
	}
}

func TestManager_SaveLoad(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved := time.UnixMilli(1_700_000_000_000)

			require.NoError(t, m.Save(ctx, 2, Snapshot{Data: []byte(`{"level":1}`), Version: 1, LastSaved: saved}))

			got, err := m.Load(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"level":1}`), got.Data)
			assert.Equal(t, 1, got.Version)
			assert.True(t, saved.Equal(got.LastSaved))

			// перезапись того же слота
			require.NoError(t, m.Save(ctx, 2, Snapshot{Data: []byte(`{"level":2}`), Version: 2, LastSaved: saved.Add(time.Second)}))
			got, err = m.Load(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, 2, got.Version)
		})
	}
}

func TestManager_NotFound(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := m.Load(ctx, 7)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, m.Delete(ctx, 7), ErrNotFound)

			ok, err := m.Exists(ctx, 7)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestManager_BackupSlotAndList(t *testing.T) {
	for name, m := range managers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.UnixMilli(5000)

			require.NoError(t, m.Save(ctx, 0, Snapshot{Data: []byte("auto"), LastSaved: now}))
			require.NoError(t, m.Save(ctx, -1, Snapshot{Data: []byte("backup"), LastSaved: now}))
			require.NoError(t, m.Save(ctx, 3, Snapshot{Data: []byte("slot3"), LastSaved: now}))

			infos, err := m.List(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 3)
			assert.Equal(t, -1, infos[0].SlotID)
			assert.Equal(t, 0, infos[1].SlotID)
			assert.Equal(t, 3, infos[2].SlotID)
			assert.Equal(t, 5, infos[2].Size)
			assert.Equal(t, checksum.Sum([]byte("slot3")), infos[2].Checksum)

			require.NoError(t, m.Delete(ctx, 3))
			ok, err := m.Exists(ctx, 3)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
