package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSnapshot(t *testing.T) {
	dir := t.TempDir()

	withMeta := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(withMeta, []byte(`{"version":3,"lastSaved":1700000000000,"hp":10}`), 0o600))

	snap, err := ReadSnapshot(withMeta)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Version)
	assert.True(t, snap.LastSaved.Equal(time.UnixMilli(1_700_000_000_000)))

	raw := filepath.Join(dir, "raw.bin")
	require.NoError(t, os.WriteFile(raw, []byte("not json"), 0o600))

	before := time.Now()
	snap, err = ReadSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Version)
	assert.False(t, snap.LastSaved.Before(before))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = ReadSnapshot(empty)
	assert.Error(t, err)

	_, err = ReadSnapshot(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
