package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	// VerifyCodeTTL is how long a signup verification code stays valid.
	VerifyCodeTTL time.Duration `env:"VERIFY_CODE_TTL, default=1h"`

	Mongo   MongoConfig
	Redis   RedisConfig
	SMTP    SMTPConfig
	Suggest SuggestConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,  default=anon_inbox"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=50"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// SMTPConfig configures verification email delivery. When Host is empty the
// server logs codes instead of sending them.
type SMTPConfig struct {
	Host       string        `env:"SMTP_HOST"`
	Port       int           `env:"SMTP_PORT, default=587"`
	Username   string        `env:"SMTP_USERNAME"`
	Password   string        `env:"SMTP_PASSWORD"`
	From       string        `env:"SMTP_FROM"`
	SenderName string        `env:"SMTP_SENDER_NAME, default=Anonymous Inbox"`
	AppURL     string        `env:"APP_URL"`
	Timeout    time.Duration `env:"EMAIL_TIMEOUT, default=10s"`
}

// SuggestConfig points at an OpenAI-compatible chat completions endpoint.
// When Endpoint is empty the built-in suggestions are served.
type SuggestConfig struct {
	Endpoint string        `env:"SUGGEST_ENDPOINT"`
	APIKey   string        `env:"SUGGEST_API_KEY"`
	Model    string        `env:"SUGGEST_MODEL, default=gpt-4o-mini"`
	Timeout  time.Duration `env:"SUGGEST_TIMEOUT, default=15s"`
}

// IsDevelopment reports whether the service runs with developer conveniences
// such as pretty logs.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
