package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string
	StoreDriver    string // redis (default), mongo, postgres, file, memory
	StoreFile      string // JSON file used by the file driver
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://api.mooddrop.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.

	UndoGrace      time.Duration // how long a released echo can be brought back
	PostCooldown   time.Duration
	ReplyCooldown  time.Duration
	MessagesAPIURL string // base URL of the messages API; empty disables sharing
	LogLevel       slog.Level
	TrustProxy     bool // honour X-Forwarded-For / X-Real-IP for client IPs
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// When HOST is a backend subdomain (e.g. api.mooddrop.app), also allow
	// https://mooddrop.app and https://www.mooddrop.app
	if h := hostname(host); h != "" && h != "localhost" {
		parts := strings.Split(h, ".")
		if len(parts) >= 3 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/mooddrop")),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/mooddrop?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		StoreDriver:    strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", DriverRedis))),
		StoreFile:      getEnv("STORE_FILE", "data/mooddrop.json"),
		Host:           host,
		AllowedHost:    allowedHost,
		Environment:    env,
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
		UndoGrace:      getDuration("UNDO_GRACE", 5*time.Second),
		PostCooldown:   getDuration("POST_COOLDOWN", 5*time.Second),
		ReplyCooldown:  getDuration("REPLY_COOLDOWN", 3*time.Second),
		MessagesAPIURL: strings.TrimRight(getEnv("MESSAGES_API_URL", ""), "/"),
		LogLevel:       parseLevel(getEnv("LOG_LEVEL", "info")),
		TrustProxy:     getEnv("TRUST_PROXY", "false") == "true",
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverRedis, DriverMongo, DriverPostgres, DriverMemory:
	case DriverFile:
		if strings.TrimSpace(c.StoreFile) == "" {
			return fmt.Errorf("config: STORE_FILE is required for the %s driver", DriverFile)
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.UndoGrace <= 0 {
		return fmt.Errorf("config: UNDO_GRACE must be positive, got %s", c.UndoGrace)
	}
	if c.PostCooldown < 0 || c.ReplyCooldown < 0 {
		return fmt.Errorf("config: cooldowns cannot be negative")
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// getDuration accepts Go durations ("5s") or plain milliseconds ("5000").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
