package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "HTTP_PORT", "DB_DRIVER", "QUEUE_BACKEND", "CORS_ORIGINS", "ACCESS_TTL", "CAM_AUTH_REQUIRED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.CamAuthRequired)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("ACCESS_TTL", "2m")
	t.Setenv("CAM_AUTH_REQUIRED", "1")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 2*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.CamAuthRequired)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("REFRESH_TTL", "forever")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")

	cfg := Load()
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	assert.False(t, cfg.DBAutoMigrate)
}

func TestLocation(t *testing.T) {
	loc, err := App{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = App{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = App{Timezone: "Nowhere/Special"}.Location()
	assert.Error(t, err)
}
