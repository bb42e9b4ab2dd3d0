package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	ListenPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// Remote exam server.
	ServerURL string
	QuizID    string
	AuthToken string

	// Local durable store (mirror of in-progress state).
	RedisURL string

	// Scheduling knobs for the state engine. Defaults match the product
	// behavior; tests construct components with their own values.
	DebounceWindow   time.Duration
	FlushInterval    time.Duration
	TickInterval     time.Duration
	PollInterval     time.Duration
	WarningThreshold time.Duration
	SubmitRetries    int
	SubmitRetryDelay time.Duration

	// AllowedOrigins controls CORS and WebSocket origin validation for the
	// local rendering UI. Empty slice means all origins are permitted.
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ListenPort: getEnv("LISTEN_PORT", "7420"),
		GinMode:    getEnv("GIN_MODE", "release"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),

		ServerURL: getEnv("EXAM_SERVER_URL", "http://localhost:8080/api/v1"),
		QuizID:    getEnv("QUIZ_ID", ""),
		AuthToken: getEnv("AUTH_TOKEN", ""),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		DebounceWindow:   time.Duration(getEnvInt("DEBOUNCE_WINDOW_MS", 500)) * time.Millisecond,
		FlushInterval:    time.Duration(getEnvInt("FLUSH_INTERVAL_SECONDS", 60)) * time.Second,
		TickInterval:     time.Second,
		PollInterval:     time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		WarningThreshold: time.Duration(getEnvInt("WARNING_THRESHOLD_MINUTES", 2)) * time.Minute,
		SubmitRetries:    getEnvInt("SUBMIT_RETRIES", 5),
		SubmitRetryDelay: time.Duration(getEnvInt("SUBMIT_RETRY_DELAY_MS", 2000)) * time.Millisecond,

		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
