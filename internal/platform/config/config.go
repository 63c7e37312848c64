// Package config loads server configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultSigningKey is only accepted in development.
const DefaultSigningKey = "dev-secret-key-change-in-production"

const envPrefix = "campusvote"

type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StoragePostgres StorageDriver = "postgres"
)

// Config captures everything main needs to wire the server. Each field reads
// CAMPUSVOTE_<NAME> first and falls back to the bare tag name.
type Config struct {
	Addr        string `envconfig:"ADDR"        default:":8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"   default:"info"`

	StorageDriver StorageDriver `envconfig:"STORAGE_DRIVER" default:"memory"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`

	RedisConfig
	KafkaConfig

	JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER"      default:"campusvote"`
	JWTAudience   string        `envconfig:"JWT_AUDIENCE"    default:"campusvote-api"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL"       default:"24h"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	MetricsToken  string `envconfig:"METRICS_TOKEN"`

	RateLimitPerHour int      `envconfig:"RATE_LIMIT_PER_HOUR" default:"100"`
	RateLimitBurst   int      `envconfig:"RATE_LIMIT_BURST"    default:"100"`
	CORSOrigins      []string `envconfig:"CORS_ORIGINS"        default:"*"`
	BodyLimitBytes   int64    `envconfig:"BODY_LIMIT_BYTES"    default:"10240"`

	LoginMaxAttempts  int           `envconfig:"LOGIN_MAX_ATTEMPTS"  default:"5"`
	LoginWindow       time.Duration `envconfig:"LOGIN_WINDOW"        default:"15m"`
	LoginLockDuration time.Duration `envconfig:"LOGIN_LOCK_DURATION" default:"15m"`

	AuditBufferSize int `envconfig:"AUDIT_BUFFER_SIZE" default:"256"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE"      default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT"   default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT"   default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT"  default:"3s"`
}

type KafkaConfig struct {
	Brokers       []string      `envconfig:"KAFKA_BROKERS"`
	AuditTopic    string        `envconfig:"AUDIT_TOPIC"          default:"campusvote.audit"`
	ConsumerGroup string        `envconfig:"AUDIT_CONSUMER_GROUP" default:"campusvote-audit"`
	RelayInterval time.Duration `envconfig:"AUDIT_RELAY_INTERVAL" default:"1s"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects settings that are only safe in development.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if !c.IsDevelopment() && c.JWTSigningKey == DefaultSigningKey {
		return errors.New("JWT_SIGNING_KEY must be set outside development")
	}
	if c.AdminEmail == "" {
		return errors.New("ADMIN_EMAIL is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.RateLimitPerHour <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 || c.LoginLockDuration <= 0 {
		return errors.New("login lockout settings must be positive")
	}
	if len(c.Brokers) > 0 && c.StorageDriver != StoragePostgres {
		return errors.New("KAFKA_BROKERS requires the postgres storage driver for the audit outbox")
	}
	return nil
}

// AuditPipelineEnabled reports whether audit events go through the outbox
// and Kafka instead of the in-memory store.
func (c *Config) AuditPipelineEnabled() bool {
	return c.StorageDriver == StoragePostgres && len(c.Brokers) > 0
}

type contextKey struct{}

// WithContext stores cfg for commands that run after the root pre-run hook.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the stored config, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}
