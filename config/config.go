package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Config é um pacote auxiliar. Poderia ser uma lib externa
 * Values come from a .env file (TOML) in the working directory, overridden by the environment.
 * The file is optional so containers can be configured with environment variables only.
 */

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`

	PostgresMaxConns               int `mapstructure:"POSTGRES_MAX_CONNS"`
	PostgresMinConns               int `mapstructure:"POSTGRES_MIN_CONNS"`
	PostgresConnMaxLifetimeMinutes int `mapstructure:"POSTGRES_CONN_MAX_LIFETIME_MINUTES"`

	// Redis is optional, without it realtime notifications stay local to the instance
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	OutboundTimeoutSeconds int    `mapstructure:"OUTBOUND_TIMEOUT_SECONDS"`
	BcryptCost             int    `mapstructure:"BCRYPT_COST"`
	RateLimitWebhook       int    `mapstructure:"RATE_LIMIT_WEBHOOK"`
	EndpointsFile          string `mapstructure:"ENDPOINTS_FILE"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	InstanceID             string `mapstructure:"INSTANCE_ID"`

	// Comma separated origins allowed to call the management API from a browser
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

var defaults = map[string]any{
	"PORT":                               "8080",
	"DATABASE_DRIVER":                    DriverSQLite,
	"DATABASE_URL":                       "",
	"SQLITE_PATH":                        "data/webhook-router.db",
	"POSTGRES_MAX_CONNS":                 0,
	"POSTGRES_MIN_CONNS":                 0,
	"POSTGRES_CONN_MAX_LIFETIME_MINUTES": 0,
	"REDIS_ADDR":                         "",
	"REDIS_PASSWORD":                     "",
	"REDIS_DB":                           0,
	"OUTBOUND_TIMEOUT_SECONDS":           30,
	"BCRYPT_COST":                        12,
	"RATE_LIMIT_WEBHOOK":                 100,
	"ENDPOINTS_FILE":                     "",
	"SHUTDOWN_TIMEOUT_SECONDS":           30,
	"INSTANCE_ID":                        "",
	"CORS_ORIGINS":                       "",
}

func GetConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, defaults register them for AutomaticEnv
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	err = v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER is %s", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER is %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

// GetOutboundTimeout returns the bound applied to every destination call
func (c *Config) GetOutboundTimeout() time.Duration {
	if c.OutboundTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.OutboundTimeoutSeconds) * time.Second
}

// GetShutdownTimeout returns how long in-flight routing may take after a stop signal
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// GetBcryptCost returns the cost for new secrets, clamped to what bcrypt accepts
func (c *Config) GetBcryptCost() int {
	switch {
	case c.BcryptCost < 4:
		return 12
	case c.BcryptCost > 31:
		return 31
	default:
		return c.BcryptCost
	}
}

// GetRateLimitWebhook returns inbound calls allowed per IP and minute
func (c *Config) GetRateLimitWebhook() int {
	if c.RateLimitWebhook <= 0 {
		return 100
	}
	return c.RateLimitWebhook
}

// GetPostgresConnMaxLifetime returns zero when unset, keeping the pool default
func (c *Config) GetPostgresConnMaxLifetime() time.Duration {
	return time.Duration(c.PostgresConnMaxLifetimeMinutes) * time.Minute
}

// RedisEnabled reports whether notifications are relayed across instances
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// GetCORSOrigins splits CORS_ORIGINS, nil means the management API sends no CORS headers
func (c *Config) GetCORSOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
