// Package config builds runtime configuration from LOSFLOW_* environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Outbox   OutboxConfig
	LogLevel string
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// PostgresConfig configures the application store. An empty URL selects the
// in-memory store (dev and tests).
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LockTimeout     time.Duration
}

// RedisConfig configures the queue cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	QueueTTL     time.Duration
}

// KafkaConfig configures the reporting publisher. No brokers disables the
// relay; outbox rows accumulate until an operator enables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuthConfig configures department JWT validation.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// OutboxConfig tunes the reporting relay.
type OutboxConfig struct {
	Interval  time.Duration
	BatchSize int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getenv("LOSFLOW_ADDR", ":8080"),
			ShutdownTimeout: getduration("LOSFLOW_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("LOSFLOW_POSTGRES_URL"),
			MaxOpenConns:    getint("LOSFLOW_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns:    getint("LOSFLOW_POSTGRES_MAX_IDLE", 5),
			ConnMaxLifetime: getduration("LOSFLOW_POSTGRES_CONN_LIFETIME", 30*time.Minute),
			LockTimeout:     getduration("LOSFLOW_ROW_LOCK_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LOSFLOW_REDIS_URL"),
			PoolSize:     getint("LOSFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("LOSFLOW_REDIS_MIN_IDLE", 2),
			DialTimeout:  getduration("LOSFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("LOSFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("LOSFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
			QueueTTL:     getduration("LOSFLOW_QUEUE_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: split(os.Getenv("LOSFLOW_KAFKA_BROKERS")),
			Topic:   getenv("LOSFLOW_KAFKA_TOPIC", "losflow.status-changes"),
		},
		Auth: AuthConfig{
			// Default for development only; production deploys override it.
			JWTSigningKey: getenv("LOSFLOW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getenv("LOSFLOW_JWT_ISSUER", "losflow"),
			Audience:      getenv("LOSFLOW_JWT_AUDIENCE", "losflow-dashboards"),
		},
		Outbox: OutboxConfig{
			Interval:  getduration("LOSFLOW_OUTBOX_INTERVAL", 2*time.Second),
			BatchSize: getint("LOSFLOW_OUTBOX_BATCH", 100),
		},
		LogLevel: getenv("LOSFLOW_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func split(v string) []string {
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
