package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// AI provider
	ProviderAPIKey  string
	ProviderBaseURL string
	ProviderOrgID   string

	// Sync
	BatchSize       int
	CollectionsFile string
	ContentDir      string

	// Status server
	ServerAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		// SurrealDB
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "vecsync"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "sync"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		// Provider credentials are validated lazily: a missing key only
		// fails once a request is actually made
		ProviderAPIKey:  getEnv("OPENAI_API_KEY", ""),
		ProviderBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ProviderOrgID:   getEnv("OPENAI_ORG_ID", ""),

		// Sync
		BatchSize:       getEnvInt("VECSYNC_BATCH_SIZE", 10),
		CollectionsFile: getEnv("VECSYNC_COLLECTIONS_FILE", "collections.yaml"),
		ContentDir:      getEnv("VECSYNC_CONTENT_DIR", "content"),

		// Status server
		ServerAddr: getEnv("VECSYNC_SERVER_ADDR", ":8090"),

		// Logging
		LogFile:  getEnv("VECSYNC_LOG_FILE", "/tmp/vecsync.log"),
		LogLevel: parseLogLevel(getEnv("VECSYNC_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
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
