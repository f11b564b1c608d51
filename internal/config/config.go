package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Supported values for DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. JWTSecret has no default: an empty secret is
// accepted at boot and makes every protected route answer 500.
type Config struct {
	Env            string        `env:"APP_ENV" envDefault:"dev"`
	Port           string        `env:"APP_PORT" envDefault:"8080"`
	DBDriver       string        `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser         string        `env:"DB_USER" envDefault:"root"`
	DBPass         string        `env:"DB_PASS"`
	DBHost         string        `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort         string        `env:"DB_PORT" envDefault:"3306"`
	DBName         string        `env:"DB_NAME" envDefault:"fitness"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"fitness.db"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenLifetime  int           `env:"TOKEN_LIFETIME" envDefault:"3600"` // seconds
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	SeedDefaults   bool          `env:"SEED_DEFAULTS" envDefault:"true"`
	RabbitMQURL    string        `env:"RABBITMQ_URL"`

	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with. A missing JWT
// secret is deliberately not one of them.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL:
		if strings.TrimSpace(c.DBHost) == "" || strings.TrimSpace(c.DBName) == "" {
			return errors.New("DB_HOST and DB_NAME are required for the mysql driver")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TokenLifetime < 0 {
		return errors.New("TOKEN_LIFETIME must not be negative")
	}
	return nil
}

// TokenTTL is the configured token lifetime as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenLifetime) * time.Second
}
