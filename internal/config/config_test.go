package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TABLEMAP_SERVER_URL", "")
	t.Setenv("TABLEMAP_CLIENT_TIMEOUT", "")
	t.Setenv("TABLEMAP_POLL_INTERVAL", "")
	t.Setenv("TABLEMAP_LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8585/api", cfg.ServerURL)
	assert.Equal(t, 10*time.Minute, cfg.ClientTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TABLEMAP_SERVER_URL", "https://tablemap.example.com/api")
	t.Setenv("TABLEMAP_POLL_INTERVAL", "2s")
	t.Setenv("TABLEMAP_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "https://tablemap.example.com/api", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TABLEMAP_POLL_INTERVAL", "not-a-duration")
	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestDualOutputLogger(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("mapping submitted", "file_id", "f-1")

	assert.Contains(t, stderr.String(), "mapping submitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "mapping submitted", entry["msg"])
	assert.Equal(t, "f-1", entry["file_id"])
}

func TestCredentialsRoundTrip(t *testing.T) {
	cfg := Config{ConfigDir: t.TempDir()}

	// Missing store means empty credentials, not an error.
	creds, err := LoadCredentials(cfg)
	require.NoError(t, err)
	assert.Empty(t, creds.Token)

	want := Credentials{ServerURL: "https://tablemap.example.com/api", Token: "secret"}
	require.NoError(t, SaveCredentials(cfg, want))

	got, err := LoadCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, ClearCredentials(cfg))
	got, err = LoadCredentials(cfg)
	require.NoError(t, err)
	assert.Empty(t, got.Token)

	// Clearing an already-empty store is fine.
	require.NoError(t, ClearCredentials(cfg))
}
