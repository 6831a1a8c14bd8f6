package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URI", "postgres://u:p@localhost:5432/saves")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, "migrations", cfg.DB.Migrations)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestLoad_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URI", "")

	_, err := Load(viper.New())
	assert.Error(t, err)
}
