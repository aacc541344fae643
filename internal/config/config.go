package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Backend connection
	ServerURL     string
	ClientTimeout time.Duration

	// Job polling
	PollInterval time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Credential store location override
	ConfigDir string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerURL:     getEnv("TABLEMAP_SERVER_URL", "http://localhost:8585/api"),
		ClientTimeout: parseDuration(getEnv("TABLEMAP_CLIENT_TIMEOUT", "10m"), 10*time.Minute),
		PollInterval:  parseDuration(getEnv("TABLEMAP_POLL_INTERVAL", "5s"), 5*time.Second),

		LogFile:  getEnv("TABLEMAP_LOG_FILE", "/tmp/tablemap.log"),
		LogLevel: parseLogLevel(getEnv("TABLEMAP_LOG_LEVEL", "INFO")),

		ConfigDir: getEnv("TABLEMAP_CONFIG_DIR", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
