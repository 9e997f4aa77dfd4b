package main

import (
	"fmt"

	"github.com/kubdash/kubdash/internal/log"
	"github.com/kubdash/kubdash/pkg/api"
	"github.com/kubdash/kubdash/pkg/cache"
	"github.com/kubdash/kubdash/pkg/config"
	"github.com/kubdash/kubdash/pkg/storage"
	"github.com/kubdash/kubdash/pkg/storage/memory"
	"github.com/kubdash/kubdash/pkg/storage/natskv"
	"github.com/kubdash/kubdash/pkg/storage/sqlite"
)

// app holds the components every command works with.
type app struct {
	cfg    *config.Config
	store  storage.Storage
	cache  *cache.Cache
	client *api.Client
}

// configFile is the --config flag. Defaults only stand in for a missing
// file when the flag was left unset.
type configFile struct {
	path     string
	explicit bool
}

func (f configFile) load() (*config.Config, error) {
	if f.explicit {
		return config.Load(f.path)
	}
	return config.LoadOrDefault(f.path)
}

func openApp(conf configFile) (*app, error) {
	cfg, err := conf.load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Init(cfg.LogLevel)

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	c := cache.New(store,
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
	)
	client := api.New(cfg.APIURL, c, api.WithTTLs(api.TTLs{
		Short:  cfg.Cache.ShortTTL,
		Medium: cfg.Cache.MediumTTL,
		Long:   cfg.Cache.LongTTL,
	}))

	return &app{cfg: cfg, store: store, cache: c, client: client}, nil
}

func (a *app) Close() error {
	return storage.Close(a.store)
}

func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(int(cfg.MaxBytes)), nil
	case "nats":
		return natskv.New(natskv.Config{URL: cfg.NatsURL, Bucket: cfg.Bucket, MaxBytes: cfg.MaxBytes})
	case "sqlite", "":
		return sqlite.New(cfg.Path, cfg.MaxBytes)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// withApp opens the app for the duration of fn.
func withApp(conf *configFile, fn func(a *app) error) error {
	a, err := openApp(*conf)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
