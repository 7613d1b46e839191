package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Environment string

const (
	EnvLocal      Environment = "LOCAL"
	EnvStaging    Environment = "STAGING"
	EnvTesting    Environment = "TESTING"
	EnvProduction Environment = "PRODUCTION"
)

// IsDebug reports whether developer-only endpoints (RSA login, public key) are enabled.
func (e Environment) IsDebug() bool {
	switch e {
	case EnvLocal, EnvStaging, EnvTesting:
		return true
	}
	return false
}


type Config struct {
	Environment Environment `env:"ENVIRONMENT" envDefault:"PRODUCTION"`
	LogLevel    string      `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr  string      `env:"SERVER_ADDR" envDefault:":8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	CacheDriver string `env:"CACHE_DRIVER" envDefault:"redis"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	AccessTokenKey  string        `env:"ACCESS_TOKEN_KEY"`
	RefreshTokenKey string        `env:"REFRESH_TOKEN_KEY"`
	AccessTokenExp  time.Duration `env:"ACCESS_TOKEN_EXP" envDefault:"15m"`
	RefreshTokenExp time.Duration `env:"REFRESH_TOKEN_EXP" envDefault:"168h"`
	JWTIssuer       string        `env:"JWT_ISSUER"`

	RSAPrivateKey     string `env:"RSA_PRIVATE_KEY"`
	RSAPrivateKeyFile string `env:"RSA_PRIVATE_KEY_FILE"`
	RSAEphemeralKey   bool   `env:"RSA_EPHEMERAL_KEY" envDefault:"false"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"user_events"`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	AuditIndex string `env:"AUDIT_INDEX" envDefault:"auth_events"`

	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`
	CookieSecure bool     `env:"COOKIE_SECURE" envDefault:"true"`
	CSRFEnabled  bool     `env:"CSRF_ENABLED" envDefault:"false"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Environment = Environment(strings.ToUpper(string(cfg.Environment)))

	if cfg.RSAPrivateKey == "" && cfg.RSAPrivateKeyFile != "" {
		pem, err := os.ReadFile(cfg.RSAPrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading RSA_PRIVATE_KEY_FILE: %w", err)
		}
		cfg.RSAPrivateKey = string(pem)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Environment {
	case EnvLocal, EnvStaging, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unknown ENVIRONMENT %q", c.Environment)
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.CacheDriver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.AccessTokenKey == "" || c.RefreshTokenKey == "" {
		return errors.New("ACCESS_TOKEN_KEY and REFRESH_TOKEN_KEY are required")
	}
	if c.AccessTokenKey == c.RefreshTokenKey {
		return errors.New("ACCESS_TOKEN_KEY and REFRESH_TOKEN_KEY must differ")
	}
	if c.AccessTokenExp <= 0 || c.RefreshTokenExp <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RSAEphemeralKey && !c.Environment.IsDebug() {
		return errors.New("RSA_EPHEMERAL_KEY is only allowed in debug environments")
	}
	return nil
}
