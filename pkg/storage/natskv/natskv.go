// Package natskv stores the medium in a NATS JetStream key-value bucket so
// several dashboards can share one cache.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kubdash/kubdash/pkg/storage"
)

const opTimeout = 5 * time.Second

// Config selects the server and bucket.
type Config struct {
	URL      string
	Bucket   string
	MaxBytes int64
}

// Store is a storage.Storage on a JetStream key-value bucket. Keys are
// base64url encoded because the bucket key charset forbids characters such
// as ':'.
type Store struct {
	nc *natsgo.Conn
	kv jetstream.KeyValue
}

// New connects and creates or updates the bucket.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	url := cfg.URL
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = natsgo.DefaultURL
	}

	nc, err := natsgo.Connect(url, natsgo.MaxReconnects(3))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		Storage:  jetstream.FileStorage,
		MaxBytes: cfg.MaxBytes,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
	}

	return &Store{nc: nc, kv: kv}, nil
}

func (s *Store) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	e, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	return string(e.Value()), nil
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, encodeKey(key), []byte(value)); err != nil {
		if strings.Contains(err.Error(), "maximum bytes exceeded") {
			return storage.ErrQuotaExceeded
		}
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.kv.Delete(ctx, encodeKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for enc := range lister.Keys() {
		k, err := decodeKey(enc)
		if err != nil {
			// Foreign key written by something else; not ours to list.
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close drains the connection.
func (s *Store) Close() error {
	return s.nc.Drain()
}

func encodeKey(k string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(k))
}

func decodeKey(k string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(k)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ storage.Storage = (*Store)(nil)
