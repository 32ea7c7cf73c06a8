// Package config loads the intake server configuration: defaults, then an
// optional YAML file, then INTAKE_* environment variables.
package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/intake/internal/adapters/file"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "INTAKE_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Source is the campaign tag sent with every submission.
	Source string `yaml:"source" env:"SOURCE"`

	// Clinical enables the patient and hospital identifiers on the welcome flow.
	Clinical bool `yaml:"clinical" env:"CLINICAL"`

	// TrustProxy takes the client address from True-Client-IP, X-Real-IP or
	// X-Forwarded-For. Enable only behind a reverse proxy that sets them.
	TrustProxy bool `yaml:"trust_proxy" env:"TRUST_PROXY"`

	// EncryptionKey is a base64 AES-256 key. When set, records are encrypted at rest.
	EncryptionKey          string   `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `yaml:"encryption_fallback_keys" env:"ENCRYPTION_FALLBACK_KEYS" envSeparator:","`

	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Redis  RedisConfig  `yaml:"redis" envPrefix:"REDIS_"`
	Submit SubmitConfig `yaml:"submit" envPrefix:"SUBMIT_"`
	Geo    GeoConfig    `yaml:"geo" envPrefix:"GEO_"`
}

// StoreConfig selects and configures the answer record backend.
type StoreConfig struct {
	Backend    string        `yaml:"backend" env:"BACKEND"`
	Name       string        `yaml:"name" env:"NAME"`
	Dir        string        `yaml:"dir" env:"DIR"`
	SQLitePath string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`

	// MaskFields lists field-name patterns replaced by "***" before saving.
	MaskFields []string `yaml:"mask_fields" env:"MASK_FIELDS" envSeparator:","`
}

// RedisConfig points at the redis server used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// SubmitConfig points at the study backend.
type SubmitConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Route   string        `yaml:"route" env:"ROUTE"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GeoConfig configures the country lookup.
type GeoConfig struct {
	LookupURL string        `yaml:"lookup_url" env:"LOOKUP_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Disabled  bool          `yaml:"disabled" env:"DISABLED"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Backend:    BackendMemory,
			Name:       domain.DefaultStoreName,
			Dir:        ".intake/records",
			SQLitePath: ".intake/intake.db",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Submit: SubmitConfig{
			Route:   "savePcrnowInfo",
			Timeout: 30 * time.Second,
		},
		Geo: GeoConfig{
			LookupURL: "https://ipwho.is",
			Timeout:   5 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", filepath.Base(path), err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Name == "" {
		errs = append(errs, errors.New("store.name: must not be empty"))
	}
	if c.EncryptionKey != "" {
		if _, err := decodeKey(c.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("encryption_key: %w", err))
		}
	}
	for i, k := range c.EncryptionFallbackKeys {
		if _, err := decodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("encryption_fallback_keys[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Backend is an opened record store with its optional distributed locker.
type Backend struct {
	Store  ports.RecordStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore opens the configured backend and wraps it with masking and encryption.
func OpenStore(ctx context.Context, c Config) (*Backend, error) {
	b := &Backend{}
	switch c.Store.Backend {
	case BackendMemory, "":
		b.Store = memory.NewStore()
	case BackendFile:
		b.Store = file.New(c.Store.Dir)
	case BackendRedis:
		var opts []redis.Option
		if c.Store.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.Store.TTL))
		}
		rs := redis.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB, opts...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", c.Redis.Addr, err)
		}
		b.Store = rs
		b.Locker = redis.NewLocker(rs.Client(), redis.DefaultPrefix)
		b.close = rs.Close
	case BackendSQLite:
		ss, err := sqlite.Open(ctx, c.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store = ss
		b.close = ss.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	// PII masking wraps encryption.
	var mws []middleware.Middleware
	if len(c.Store.MaskFields) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(c.Store.MaskFields))
	}
	if c.EncryptionKey != "" {
		active, err := decodeKey(c.EncryptionKey)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("encryption_key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range c.EncryptionFallbackKeys {
			fallback, err := decodeKey(k)
			if err != nil {
				b.Close()
				return nil, fmt.Errorf("encryption_fallback_keys: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, fallback)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}
