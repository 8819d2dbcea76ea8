// Package config builds the process configuration once at startup. Every
// component receives its settings by injection; nothing reads the
// environment after FromEnv returns.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const Version = "1.0"

type Config struct {
	Addr string

	// Store selects the table backend: "memory" or "postgres".
	StoreBackend string
	PostgresDSN  string

	// RedisURL enables the shared rate-limit counter cache; empty means the
	// in-process counter store.
	RedisURL string

	// AuthMode is "tokeninfo" (external verification endpoint) or "local"
	// (HS256 shared key, development only).
	AuthMode        string
	TokenInfoURL    string
	ClientID        string
	AllowedUsers    []string
	LocalSigningKey string

	RateLimitEnabled    bool
	RateLimitMax        int
	RateLimitWindow     time.Duration
	RateLimitFailClosed bool

	MaxPayloadBytes int64
	RequiredTables  []string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr: envString("CATALOG_ADDR", ":8080"),

		StoreBackend: envString("CATALOG_STORE", "memory"),
		PostgresDSN:  os.Getenv("CATALOG_POSTGRES_DSN"),
		RedisURL:     os.Getenv("CATALOG_REDIS_URL"),

		AuthMode:     envString("CATALOG_AUTH_MODE", "tokeninfo"),
		TokenInfoURL: envString("CATALOG_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		ClientID:     os.Getenv("CATALOG_CLIENT_ID"),
		AllowedUsers: envList("CATALOG_ALLOWED_USERS"),
		// Development default, override in any real deployment.
		LocalSigningKey: envString("CATALOG_SIGNING_KEY", "dev-secret-key-change-in-production"),

		RateLimitEnabled:    envBool("CATALOG_RATE_LIMIT_ENABLED", true),
		RateLimitMax:        envInt("CATALOG_RATE_LIMIT_MAX", 30),
		RateLimitWindow:     envDuration("CATALOG_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitFailClosed: envBool("CATALOG_RATE_LIMIT_FAIL_CLOSED", false),

		MaxPayloadBytes: envInt64("CATALOG_MAX_PAYLOAD_BYTES", 1<<20),
		RequiredTables:  envListDefault("CATALOG_REQUIRED_TABLES", []string{"systems", "documents", "requirements"}),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
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

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	return envListDefault(key, nil)
}

func envListDefault(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
