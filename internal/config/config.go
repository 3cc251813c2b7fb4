package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	UpstreamRetries int

	LiveStreamURL   string
	LiveStreamToken string

	JWTSecret  string
	SessionTTL time.Duration

	// Empty disables the bulk submission journal.
	DatabaseURL string

	BulkSchema          string
	BulkDuplicateStores string
	BulkDefaultVehicle  string
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		UpstreamRetries: getEnvInt("UPSTREAM_RETRIES", 3),

		LiveStreamURL:   getEnv("LIVE_STREAM_URL", ""),
		LiveStreamToken: getEnv("LIVE_STREAM_TOKEN", ""),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		BulkSchema:          getEnv("BULK_SCHEMA", "paired"),
		BulkDuplicateStores: getEnv("BULK_DUPLICATE_STORES", "first"),
		BulkDefaultVehicle:  getEnv("BULK_DEFAULT_VEHICLE", "BIKE"),
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UpstreamBaseURL) == "" {
		return fmt.Errorf("missing required env var: UPSTREAM_BASE_URL")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("missing required env var: JWT_SECRET")
	}
	if c.UpstreamRetries < 1 {
		return fmt.Errorf("UPSTREAM_RETRIES must be >= 1, got %d", c.UpstreamRetries)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
