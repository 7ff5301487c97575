package config

import (
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	for _, k := range []string{
		"SERVER_HOST", "SERVER_PORT", "DATA_DIR", "S3_ENDPOINT", "S3_BUCKET",
		"POSTGRES_DSN", "POSTGRES_USER", "POSTGRES_DB", "REDIS_ADDR", "SMTP_HOST",
		"SMTP_USER", "LOG_LEVEL", "TIMEZONE", "ADMIN_USER",
	} {
		t.Setenv(k, "")
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, 10, cfg.Storage.S3MaxBackups)
	assert.Equal(t, "admin", cfg.Admin.User)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
}

func TestNewBuildsPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("POSTGRES_USER", "atelier")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "atelier")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := New()
	require.NoError(t, err)

	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "postgres://atelier:secret@db:5433/atelier?sslmode=disable", cfg.Postgres.DSN)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT": "http",
		"SMTP_PORT":   "465a",
		"LOG_LEVEL":   "loud",
		"TIMEZONE":    "Mars/Olympus",
	}

	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestNewEscapesPostgresCredentials(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("POSTGRES_USER", "studio owner")
	t.Setenv("POSTGRES_PASSWORD", "p@ss/w:rd?")
	t.Setenv("POSTGRES_DB", "atelier")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_MAX_CONNS", "4")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, int32(4), cfg.Postgres.MaxConns)

	parsed, err := pgconn.ParseConfig(cfg.Postgres.DSN)
	require.NoError(t, err)

	assert.Equal(t, "studio owner", parsed.User)
	assert.Equal(t, "p@ss/w:rd?", parsed.Password)
	assert.Equal(t, "db", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "atelier", parsed.Database)
}
