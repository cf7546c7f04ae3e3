// Package config manages environment variables.
//
// It reads variables from the environment (and a `.env` file when present),
// loads them into structured Go types and validates that required values are
// present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (cache, shortener, observability).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every recognised variable carries.
//
// Nesting uses a double underscore:
//
//	SHORTLINK_SERVER__PORT       -> server.port
//	SHORTLINK_STORE__DRIVER      -> store.driver
//	SHORTLINK_CACHE__DEFAULT_TTL -> cache.default_ttl
const EnvPrefix = "SHORTLINK_"

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Store         StoreConfig          `koanf:"store" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Database      DatabaseConfig       `koanf:"database"`
	Cache         CacheConfig          `koanf:"cache"`
	Shortener     ShortenerConfig      `koanf:"shortener"`
	Jobs          JobsConfig           `koanf:"jobs"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// CreateRateLimit is the sustained number of POST /new requests
	// per second allowed per client IP. Zero disables the limiter.
	CreateRateLimit float64 `koanf:"create_rate_limit" validate:"min=0"`
}

// StoreConfig selects the key/value backend used for links, users,
// assets and cached responses.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory redis postgres"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port". It is required by the redis driver and by
// background jobs.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Only used by the postgres driver.
type DatabaseConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
}

// CacheConfig controls the edge response cache in front of the shortener.
type CacheConfig struct {
	Disabled bool `koanf:"disabled"`

	// DefaultTTL applies when a cacheable response carries no max-age.
	DefaultTTL time.Duration `koanf:"default_ttl" validate:"min=0"`

	// MaxBodyBytes caps the size of a response body that will be stored.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=0"`

	// WriteTimeout bounds each background cache write.
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"min=0"`
}

// ShortenerConfig holds the short URL business rules.
type ShortenerConfig struct {
	// MinTTL is the smallest expiring TTL a link may request.
	MinTTL time.Duration `koanf:"min_ttl" validate:"min=0"`

	// GuestMaxTTL is the longest TTL anonymous callers may request.
	// Permanent links and anything longer require an API key.
	GuestMaxTTL time.Duration `koanf:"guest_max_ttl" validate:"min=0"`

	// MaxTTL caps the TTL of expiring links so expiry instants stay
	// representable in every backend.
	MaxTTL time.Duration `koanf:"max_ttl" validate:"min=0"`

	// MaxIDAttempts bounds id regeneration on collisions.
	MaxIDAttempts int `koanf:"max_id_attempts" validate:"min=0"`

	// AssetMaxAge is the Cache-Control max-age sent with non-HTML assets.
	AssetMaxAge time.Duration `koanf:"asset_max_age" validate:"min=0"`
}

// JobsConfig controls the asynq worker and scheduler.
type JobsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Concurrency   int    `koanf:"concurrency" validate:"min=0"`
	PurgeSchedule string `koanf:"purge_schedule"`
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config, applies defaults and validates the result.
//
// Behavior summary:
//   - Loads env vars with prefix SHORTLINK_
//   - Converts "__" in env keys into koanf "." nesting
//   - Unmarshals into Config and fills zero values with defaults
//   - Validates struct tags and cross-field rules
//   - Overrides observability service name + environment
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	mainConfig.applyDefaults()

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// applyDefaults fills every optional knob left at its zero value.
func (c *Config) applyDefaults() {
	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Force service name and environment so logs and traces agree.
	c.Observability.ServiceName = "shortlink"
	c.Observability.Environment = c.Primary.Env

	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}

	def := DefaultCacheConfig()
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = def.DefaultTTL
	}
	if c.Cache.MaxBodyBytes == 0 {
		c.Cache.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.Cache.WriteTimeout == 0 {
		c.Cache.WriteTimeout = def.WriteTimeout
	}

	sdef := DefaultShortenerConfig()
	if c.Shortener.MinTTL == 0 {
		c.Shortener.MinTTL = sdef.MinTTL
	}
	if c.Shortener.GuestMaxTTL == 0 {
		c.Shortener.GuestMaxTTL = sdef.GuestMaxTTL
	}
	if c.Shortener.MaxTTL == 0 {
		c.Shortener.MaxTTL = sdef.MaxTTL
	}
	if c.Shortener.MaxIDAttempts == 0 {
		c.Shortener.MaxIDAttempts = sdef.MaxIDAttempts
	}
	if c.Shortener.AssetMaxAge == 0 {
		c.Shortener.AssetMaxAge = sdef.AssetMaxAge
	}

	if c.Jobs.Concurrency == 0 {
		c.Jobs.Concurrency = 2
	}
	if c.Jobs.PurgeSchedule == "" {
		c.Jobs.PurgeSchedule = "@every 1h"
	}
}

// Validate runs the struct-tag validator and the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Store.Driver == DriverRedis && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for the %q store driver", DriverRedis)
	}
	if c.Jobs.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when jobs are enabled")
	}
	if c.Store.Driver == DriverPostgres {
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return fmt.Errorf("database.host, database.name and database.user are required for the %q store driver", DriverPostgres)
		}
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

// DefaultCacheConfig returns the response cache defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:   4 * time.Hour,
		MaxBodyBytes: 1 << 20,
		WriteTimeout: 5 * time.Second,
	}
}

// DefaultShortenerConfig returns the business rule defaults.
func DefaultShortenerConfig() ShortenerConfig {
	return ShortenerConfig{
		MinTTL:        time.Minute,
		GuestMaxTTL:   7 * 24 * time.Hour,
		MaxTTL:        100 * 365 * 24 * time.Hour,
		MaxIDAttempts: 16,
		AssetMaxAge:   4 * time.Hour,
	}
}

// IsLocal reports whether the process runs in the "local" environment.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}

// Hostname is used to tag logs when running outside a container runtime.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
