package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 7, cfg.Auth.TokenTTLDays)
	assert.Equal(t, 15*time.Minute, cfg.Limits.LoginLockout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.True(t, cfg.RunMigrations)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "postgres")
	t.Setenv("ORPHAN_GRACE_PERIOD", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://hub.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Host)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.GracePeriod)
	assert.Equal(t, []string{"https://hub.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cr3t")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_StoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreDriver)

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}
