package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	// IdentityWorkers shards identity change delivery by user.
	IdentityWorkers int `env:"IDENTITY_WORKERS, default=8"`

	Session SessionConfig

	Mongo     MongoConfig
	Redis     RedisConfig
	Directory DirectoryConfig
	Retry     RetryConfig
	Auth      AuthConfig
	Google    GoogleConfig
}

type MongoConfig struct {
	URI          string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database     string `env:"MONGO_DB,  default=docbook"`
	Transactions bool   `env:"MONGO_TRANSACTIONS, default=false"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL, default=15s"`
}

// SessionConfig bounds how long an unused per-user session stays cached.
type SessionConfig struct {
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT,   default=1h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1m"`
}

type DirectoryConfig struct {
	CallTimeout time.Duration `env:"DIRECTORY_CALL_TIMEOUT, default=10s"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS, default=3"`
	BaseDelay   time.Duration `env:"RETRY_BASE_DELAY,   default=200ms"`
	Multiplier  float64       `env:"RETRY_MULTIPLIER,   default=2"`
}

type AuthConfig struct {
	MinPasswordLength int           `env:"AUTH_MIN_PASSWORD_LENGTH, default=6"`
	MaxFailures       int           `env:"AUTH_MAX_FAILURES,        default=5"`
	FailureWindow     time.Duration `env:"AUTH_FAILURE_WINDOW,      default=15m"`
}

// GoogleConfig enables Google sign-in when ClientID is set. Keys maps a key
// id to a PEM encoded RSA public key, e.g. GOOGLE_KEYS=kid1:<pem>,kid2:<pem>.
type GoogleConfig struct {
	ClientID string            `env:"GOOGLE_CLIENT_ID"`
	Keys     map[string]string `env:"GOOGLE_KEYS"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && len(g.Keys) > 0
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := Process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Process reads configuration from l.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
