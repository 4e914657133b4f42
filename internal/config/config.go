// Package config loads furrow settings from defaults, an optional file and
// FURROW_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FURROW"

// Config stores the whole configuration.
type Config struct {
	// Logging level (debug, info, warn, error)
	LogLevel string

	// Log handler: text or json
	LogFormat string

	Store      Store
	Retry      Retry
	Cache      Cache
	Metrics    Metrics
	Vault      Vault
	Encryption Encryption
	Redaction  Redaction
}

// Store selects and configures the ledger backend.
type Store struct {
	// One of memory, file, redis, postgres
	Driver   string
	Path     string
	Redis    Redis
	Postgres Postgres
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Postgres struct {
	DSN   string
	Table string
}

// Retry bounds how long conflicting transactions are re-run.
type Retry struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// Cache configures the role cache of the engine.
type Cache struct {
	RoleTTL         time.Duration
	CleanupInterval time.Duration
}

type Metrics struct {
	Enabled       bool
	ListenAddress string
}

type Vault struct {
	Currency string
}

// Encryption is disabled while Key is empty. Keys are hex encoded.
type Encryption struct {
	Key          string
	FallbackKeys []string
}

type Redaction struct {
	Patterns []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")

	v.SetDefault("Store.Driver", "file")
	v.SetDefault("Store.Path", ".furrow/ledger.json")
	v.SetDefault("Store.Redis.Addr", "127.0.0.1:6379")
	v.SetDefault("Store.Redis.DB", 0)
	v.SetDefault("Store.Redis.Prefix", "furrow:")
	v.SetDefault("Store.Postgres.Table", "ledger_records")

	v.SetDefault("Retry.InitialInterval", "5ms")
	v.SetDefault("Retry.MaxInterval", "250ms")
	v.SetDefault("Retry.MaxElapsedTime", "10s")
	v.SetDefault("Retry.MaxRetries", 0)

	v.SetDefault("Cache.RoleTTL", "10m")
	v.SetDefault("Cache.CleanupInterval", "20m")

	v.SetDefault("Metrics.Enabled", false)
	v.SetDefault("Metrics.ListenAddress", ":9464")

	v.SetDefault("Vault.Currency", "FRW")

	v.SetDefault("Redaction.Patterns", []string{})
	v.SetDefault("Encryption.FallbackKeys", []string{})
}

// bindEnv visits every field and registers its upper snake case env name,
// e.g. Store.Redis.Addr -> FURROW_STORE_REDIS_ADDR.
func bindEnv(v *viper.Viper, path []string, val reflect.Value) error {
	if val.Kind() != reflect.Struct {
		key := strings.Join(path, ".")
		env := EnvPrefix + "_" + strcase.ToScreamingSnake(strings.Join(path, "_"))
		return v.BindEnv(key, env)
	}
	for i := 0; i < val.NumField(); i++ {
		next := append(append([]string{}, path...), val.Type().Field(i).Name)
		if err := bindEnv(v, next, val.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Default returns the configuration with nothing but defaults and env applied.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration. An empty filename means defaults and env only.
// The file format follows the extension (yaml, yml, json, toml).
func Load(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v, nil, reflect.ValueOf(Config{})); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type check.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("store.postgres.dsn is required for the postgres driver")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
