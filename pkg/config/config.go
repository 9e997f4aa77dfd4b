package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kubdash configuration.
type Config struct {
	APIURL   string        `yaml:"api_url"`
	LogLevel string        `yaml:"log_level"`
	Storage  StorageConfig `yaml:"storage"`
	Cache    CacheConfig   `yaml:"cache"`
	Notify   NotifyConfig  `yaml:"notify"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects the medium the cache is persisted in.
// Backend is "sqlite" (default), "memory" or "nats".
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
	NatsURL  string `yaml:"nats_url"`
	Bucket   string `yaml:"bucket"`
}

// CacheConfig controls the key namespace and TTL tiers.
type CacheConfig struct {
	Prefix     string        `yaml:"prefix"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
	ShortTTL   time.Duration `yaml:"short_ttl"`
	MediumTTL  time.Duration `yaml:"medium_ttl"`
	LongTTL    time.Duration `yaml:"long_ttl"`
}

// NotifyConfig controls the event feed poller.
type NotifyConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		APIURL:   "http://localhost:8000",
		LogLevel: "error",
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "kubdash.db",
			Bucket:  "kubdash",
		},
		Cache: CacheConfig{
			Prefix:     "kub_cache_",
			DefaultTTL: 5 * time.Minute,
			ShortTTL:   2 * time.Minute,
			MediumTTL:  10 * time.Minute,
			LongTTL:    30 * time.Minute,
		},
		Notify: NotifyConfig{
			Enabled:  true,
			Interval: 3 * time.Second,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "memory", "nats":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Cache.Prefix == "" {
		return errors.New("cache prefix must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"default_ttl": c.Cache.DefaultTTL,
		"short_ttl":   c.Cache.ShortTTL,
		"medium_ttl":  c.Cache.MediumTTL,
		"long_ttl":    c.Cache.LongTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("cache %s must be positive", name)
		}
	}
	if c.Notify.Interval <= 0 {
		return errors.New("notify interval must be positive")
	}
	return nil
}
