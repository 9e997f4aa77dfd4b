package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubdash.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("expected localhost:8000, got %s", cfg.APIURL)
	}
	if cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("expected 5m default TTL, got %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Cache.ShortTTL != 2*time.Minute || cfg.Cache.MediumTTL != 10*time.Minute || cfg.Cache.LongTTL != 30*time.Minute {
		t.Errorf("unexpected TTL tiers: %+v", cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_URL", "http://api.internal:9000")

	path := writeConfig(t, `
api_url: ${TEST_API_URL}
log_level: debug
storage:
  backend: memory
  max_bytes: 5242880
cache:
  prefix: test_
  short_ttl: 30s
notify:
  interval: 10s
metrics:
  listen: ":9102"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.APIURL != "http://api.internal:9000" {
		t.Errorf("env var not expanded: got %s", cfg.APIURL)
	}
	if cfg.Storage.Backend != "memory" || cfg.Storage.MaxBytes != 5242880 {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Cache.Prefix != "test_" {
		t.Errorf("expected test_ prefix, got %s", cfg.Cache.Prefix)
	}
	if cfg.Cache.ShortTTL != 30*time.Second {
		t.Errorf("expected 30s short TTL, got %v", cfg.Cache.ShortTTL)
	}
	if cfg.Cache.MediumTTL != 10*time.Minute {
		t.Errorf("unset fields should keep defaults, got %v", cfg.Cache.MediumTTL)
	}
	if cfg.Notify.Interval != 10*time.Second {
		t.Errorf("expected 10s interval, got %v", cfg.Notify.Interval)
	}
	if cfg.Metrics.Listen != ":9102" {
		t.Errorf("expected :9102, got %s", cfg.Metrics.Listen)
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"backend":  "storage:\n  backend: redis\n",
		"prefix":   "cache:\n  prefix: \"\"\n",
		"ttl":      "cache:\n  long_ttl: -1s\n",
		"interval": "notify:\n  interval: 0s\n",
		"yaml":     "cache: [",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("expected defaults, got %+v", cfg.Storage)
	}
}
