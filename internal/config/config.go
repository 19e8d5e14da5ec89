package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	DBConnString    string
	RedisAddr       string
	KafkaBrokers    []string
	KafkaTopic      string
	AdminIDs        []string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	MessageLimit   int
	MessageWindow  time.Duration
	OrderLimit     int
	OrderWindow    time.Duration
	ErrorThreshold int
	Cooldown       time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
// DB_DSN, REDIS_ADDR and KAFKA_BROKERS are optional; when empty the bot
// falls back to in-memory stores and logging-only audit.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DBConnString:    envOrDefault("DB_DSN", ""),
		RedisAddr:       envOrDefault("REDIS_ADDR", ""),
		KafkaBrokers:    envList("KAFKA_BROKERS"),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "chatcommerce.audit"),
		AdminIDs:        envList("ADMIN_IDS"),
		CORSOrigins:     envList("CORS_ORIGINS"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),

		MessageLimit:   envInt("GUARD_MESSAGE_LIMIT", 20),
		MessageWindow:  envDuration("GUARD_MESSAGE_WINDOW_SECONDS", time.Minute),
		OrderLimit:     envInt("GUARD_ORDER_LIMIT", 5),
		OrderWindow:    envDuration("GUARD_ORDER_WINDOW_SECONDS", 24*time.Hour),
		ErrorThreshold: envInt("GUARD_ERROR_THRESHOLD", 3),
		Cooldown:       envDuration("GUARD_COOLDOWN_SECONDS", 5*time.Minute),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
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
