package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"3000"`
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost       string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort       string        `envconfig:"DB_PORT" default:"3306"`
	DBUser       string        `envconfig:"DB_USER" default:"root"`
	DBPassword   string        `envconfig:"DB_PASSWORD" default:""`
	DBName       string        `envconfig:"DB_NAME" default:"ecommerce_db"`
	DBRetries    int           `envconfig:"DB_CONNECT_RETRIES" default:"10"`
	DBRetryDelay time.Duration `envconfig:"DB_RETRY_DELAY" default:"3s"`

	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessExpiry  time.Duration `envconfig:"JWT_EXPIRES_IN" default:"1h"`
	JWTRefreshExpiry time.Duration `envconfig:"JWT_REFRESH_EXPIRES_IN" default:"168h"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"order-topic"`

	RateLimit float64 `envconfig:"RATE_LIMIT" default:"10"`
	RateBurst int     `envconfig:"RATE_BURST" default:"30"`

	DefaultPageSize   int `envconfig:"DEFAULT_PAGE_SIZE" default:"10"`
	MaxPageSize       int `envconfig:"MAX_PAGE_SIZE" default:"100"`
	MinPasswordLength int `envconfig:"MIN_PASSWORD_LENGTH" default:"6"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, errors.Wrap(err, "load env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, errors.Errorf("MAX_PAGE_SIZE (%d) must not be below DEFAULT_PAGE_SIZE (%d)", cfg.MaxPageSize, cfg.DefaultPageSize)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
