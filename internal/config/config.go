// Package config reads process configuration from CAFEPOS_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CAFEPOS"

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	Refund   RefundConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

type AppConfig struct {
	Port           string   `envconfig:"CAFEPOS_PORT" default:"8080"`
	AllowedOrigins []string `envconfig:"CAFEPOS_ALLOWED_ORIGINS" default:"http://127.0.0.1:3000"`
	LogLevel       string   `envconfig:"CAFEPOS_LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"CAFEPOS_LOG_FORMAT" default:"json"`
}

func (a AppConfig) Address() string {
	return fmt.Sprintf(":%s", a.Port)
}

// DBConfig selects Postgres when DatabaseURL is set, the in-memory store
// otherwise.
type DBConfig struct {
	DatabaseURL string `envconfig:"CAFEPOS_DATABASE_URL"`
}

type RedisConfig struct {
	Address  string `envconfig:"CAFEPOS_REDIS_ADDR"`
	Password string `envconfig:"CAFEPOS_REDIS_PASSWORD"`
	DB       int    `envconfig:"CAFEPOS_REDIS_DB" default:"0"`
}

type UpstreamConfig struct {
	BaseURL string        `envconfig:"CAFEPOS_API_BASE_URL"`
	Timeout time.Duration `envconfig:"CAFEPOS_UPSTREAM_TIMEOUT" default:"10s"`
}

type AuthConfig struct {
	Secret   string        `envconfig:"CAFEPOS_AUTH_SECRET"`
	TokenTTL time.Duration `envconfig:"CAFEPOS_TOKEN_TTL" default:"8h"`

	// ManagerPIN and ManagerUsername back the local PIN verifier used when
	// no Auth service is configured. The PIN may be a bcrypt hash.
	ManagerPIN      string `envconfig:"CAFEPOS_MANAGER_PIN"`
	ManagerUsername string `envconfig:"CAFEPOS_MANAGER_USERNAME" default:"manager"`

	PINAttemptMax    int           `envconfig:"CAFEPOS_PIN_ATTEMPT_MAX" default:"5"`
	PINAttemptWindow time.Duration `envconfig:"CAFEPOS_PIN_ATTEMPT_WINDOW" default:"5m"`
}

type CatalogConfig struct {
	TTL time.Duration `envconfig:"CAFEPOS_CATALOG_TTL" default:"60s"`
}

type RefundConfig struct {
	Window time.Duration `envconfig:"CAFEPOS_REFUND_WINDOW" default:"30m"`
}

func (c *Config) normalize() {
	c.Auth.Secret = strings.TrimSpace(c.Auth.Secret)
	c.Auth.ManagerPIN = strings.TrimSpace(c.Auth.ManagerPIN)
	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")

	origins := c.App.AllowedOrigins[:0]
	for _, origin := range c.App.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.App.AllowedOrigins = origins
}

// UsesLocalPIN reports whether manager PINs are checked against
// configuration instead of the Auth service.
func (c Config) UsesLocalPIN() bool {
	return c.Upstream.BaseURL == ""
}
