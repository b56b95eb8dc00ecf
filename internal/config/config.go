// Package config loads the mcrud configuration from mcrud.yaml and MCRUD_
// environment variables.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MCRUD_SERVER_PORT
const EnvPrefix = "MCRUD"

// Config represents the mcrud configuration
type Config struct {
	Debug     bool            `mapstructure:"debug"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
	Routes    RoutesConfig    `mapstructure:"routes"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Profiling       bool          `mapstructure:"profiling"` // mounts /debug/pprof and /debug/stats
}

// StoreConfig selects and addresses the document store
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // memory or mongo
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// SchemaConfig points at the collections file
type SchemaConfig struct {
	File string `mapstructure:"file"`
}

// IntegrityConfig tunes the integrity engine
type IntegrityConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout"`
}

// RoutesConfig controls the routes list endpoint
type RoutesConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
	URL     string `mapstructure:"url"`
}

// CacheConfig controls the read cache
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // none, memory or redis
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// AuthConfig controls the bearer token guard on mutating routes
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig sizes the "ratelimit" middleware collections may opt into.
// The redis backend connects with the cache.redis_* settings.
type RateLimitConfig struct {
	Backend  string        `mapstructure:"backend"` // none, memory or redis
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Load loads the configuration from path, or from mcrud.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mcrud")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.profiling", false)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "mcrud")

	v.SetDefault("schema.file", "schema.yaml")

	v.SetDefault("integrity.max_concurrency", 8)
	v.SetDefault("integrity.action_timeout", 10*time.Second)

	v.SetDefault("routes.enabled", true)
	v.SetDefault("routes.prefix", "")
	v.SetDefault("routes.url", "")

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("ratelimit.backend", "none")
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	switch cfg.Store.Driver {
	case "memory", "mongo":
	default:
		return fmt.Errorf("store.driver must be memory or mongo, got: %s", cfg.Store.Driver)
	}

	switch cfg.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got: %s", cfg.Cache.Backend)
	}

	switch cfg.RateLimit.Backend {
	case "none":
	case "memory", "redis":
		if cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0 {
			return fmt.Errorf("ratelimit.requests and ratelimit.window must be positive")
		}
	default:
		return fmt.Errorf("ratelimit.backend must be none, memory or redis, got: %s", cfg.RateLimit.Backend)
	}

	if cfg.Integrity.MaxConcurrency < 0 {
		return fmt.Errorf("integrity.max_concurrency must not be negative, got: %d", cfg.Integrity.MaxConcurrency)
	}

	return nil
}
