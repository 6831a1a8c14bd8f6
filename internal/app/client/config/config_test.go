package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, BackendHTTP, cfg.RemoteBackend)
	assert.Equal(t, 5, cfg.MaxSlots)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, "newest", cfg.Sync.ConflictPolicy)
	assert.Equal(t, 30*time.Second, cfg.AutoSave.MinGap)
	assert.True(t, cfg.AutoSave.Enabled)
	assert.Empty(t, cfg.AutoSave.Triggers)
	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, dir+"/token", cfg.TokenPath)
	assert.True(t, cfg.IsLocal())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("REMOTE_BACKEND", "MINIO")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("SYNC_RETRY_BASE_DELAY", "250ms")
	t.Setenv("AUTOSAVE_TRIGGERS", "manual, level_complete ,")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, BackendMinio, cfg.RemoteBackend)
	assert.Equal(t, "savesync", cfg.Minio.Bucket)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.RetryBaseDelay)
	assert.Equal(t, []string{"manual", "level_complete"}, cfg.AutoSave.Triggers)
	assert.True(t, cfg.IsProd())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("REMOTE_BACKEND", "ftp")

	_, err := Load(viper.New())
	assert.Error(t, err)
}
