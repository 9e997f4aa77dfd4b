package cache

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/kubdash/kubdash/pkg/models"
	"github.com/kubdash/kubdash/pkg/storage"
)

// DefaultPrefix namespaces cache keys within the storage medium.
const DefaultPrefix = "kub_cache_"

// TTL tiers used by callers.
const (
	TTLShort   = 2 * time.Minute
	TTLMedium  = 10 * time.Minute
	TTLLong    = 30 * time.Minute
	DefaultTTL = 5 * time.Minute
)

// Cache is an expiring key-value cache. It is safe for concurrent use as
// long as the underlying storage is; concurrent writers to one key resolve
// as last writer wins.
type Cache struct {
	store      storage.Storage
	prefix     string
	defaultTTL time.Duration
	clock      Clock
	log        log.Interface

	hits      atomic.Int64
	misses    atomic.Int64
	faults    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithDefaultTTL sets the TTL used when Set is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger sets the logger faults are reported to.
func WithLogger(l log.Interface) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a Cache over store.
func New(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		prefix:     DefaultPrefix,
		defaultTTL: DefaultTTL,
		clock:      SystemClock{},
		log:        log.Log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefix returns the key namespace.
func (c *Cache) Prefix() string { return c.prefix }

// Storage returns the underlying medium.
func (c *Cache) Storage() storage.Storage { return c.store }

// Set stores value under key for ttl, or the default TTL when ttl <= 0.
// It reports whether the write succeeded.
func (c *Cache) Set(key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.fault(key, "encode value", err)
		return false
	}

	expiry := c.clock.Now().UnixMilli() + ttlMillis(ttl)
	rec, err := json.Marshal(models.CacheRecord{Value: raw, Expiry: &expiry})
	if err != nil {
		c.fault(key, "encode record", err)
		return false
	}

	if err := c.store.Set(c.prefix+key, string(rec)); err != nil {
		c.fault(key, "write", err)
		return false
	}
	return true
}

// Get returns the live value stored under key, or nil. Expired and
// malformed entries are removed.
func (c *Cache) Get(key string) json.RawMessage {
	v, _ := c.Lookup(key)
	return v
}

// Lookup is Get with the outcome classified.
func (c *Cache) Lookup(key string) (json.RawMessage, Result) {
	if key == "" {
		return nil, Miss
	}

	full := c.prefix + key
	s, err := c.store.Get(full)
	if errors.Is(err, storage.ErrNotFound) {
		c.misses.Add(1)
		return nil, Miss
	}
	if err != nil {
		c.fault(key, "read", err)
		return nil, Fault
	}

	rec, ok := decodeRecord(s)
	switch {
	case !ok:
		c.evict(full, "malformed")
	case c.expired(rec):
		c.evict(full, "expired")
	default:
		c.hits.Add(1)
		return rec.Value, Hit
	}
	c.misses.Add(1)
	return nil, Miss
}

// Remove deletes key. Removing an absent key succeeds.
func (c *Cache) Remove(key string) bool {
	if key == "" {
		return false
	}
	if err := c.store.Remove(c.prefix + key); err != nil {
		c.fault(key, "remove", err)
		return false
	}
	return true
}

// Clear removes every namespaced entry and leaves other keys untouched.
func (c *Cache) Clear() bool {
	keys, err := c.store.Keys(c.prefix)
	if err != nil {
		c.fault("", "enumerate", err)
		return false
	}

	ok := true
	for _, k := range keys {
		if err := c.store.Remove(k); err != nil {
			c.fault(k, "clear", err)
			ok = false
		}
	}
	return ok
}

// Prune removes expired and malformed entries only.
func (c *Cache) Prune() bool {
	keys, err := c.store.Keys(c.prefix)
	if err != nil {
		c.fault("", "enumerate", err)
		return false
	}

	ok := true
	for _, k := range keys {
		s, err := c.store.Get(k)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			c.fault(k, "prune read", err)
			ok = false
			continue
		}

		rec, valid := decodeRecord(s)
		if valid && !c.expired(rec) {
			continue
		}
		reason := "expired"
		if !valid {
			reason = "malformed"
		}
		if !c.evict(k, reason) {
			ok = false
		}
	}
	return ok
}

// Entries describes every namespaced entry without evicting anything.
// Keys are returned without the prefix.
func (c *Cache) Entries() ([]models.CacheEntryInfo, error) {
	keys, err := c.store.Keys(c.prefix)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UnixMilli()
	out := make([]models.CacheEntryInfo, 0, len(keys))
	for _, k := range keys {
		s, err := c.store.Get(k)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		info := models.CacheEntryInfo{Key: k[len(c.prefix):], Size: len(s)}
		if rec, ok := decodeRecord(s); ok {
			info.ExpiresAt = time.UnixMilli(*rec.Expiry)
			info.Expired = *rec.Expiry <= now
		} else {
			info.Malformed = true
		}
		out = append(out, info)
	}
	return out, nil
}

// Stats returns hit, miss, fault and eviction counters plus the number of
// stored entries.
func (c *Cache) Stats() (models.CacheStats, error) {
	stats := models.CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Faults:    c.faults.Load(),
		Evictions: c.evictions.Load(),
	}
	keys, err := c.store.Keys(c.prefix)
	if err != nil {
		return stats, err
	}
	stats.Entries = int64(len(keys))
	return stats, nil
}

func (c *Cache) expired(rec models.CacheRecord) bool {
	return *rec.Expiry <= c.clock.Now().UnixMilli()
}

func (c *Cache) evict(full, reason string) bool {
	if err := c.store.Remove(full); err != nil {
		c.fault(full, "evict", err)
		return false
	}
	c.evictions.Add(1)
	c.log.WithFields(log.Fields{"key": full, "reason": reason}).Debug("cache evict")
	return true
}

func (c *Cache) fault(key, op string, err error) {
	c.faults.Add(1)
	c.log.WithError(err).WithFields(log.Fields{"key": key, "op": op}).Error("cache error")
}

// decodeRecord parses a stored record. Records without a value or an
// expiry are malformed.
func decodeRecord(s string) (models.CacheRecord, bool) {
	var rec models.CacheRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return rec, false
	}
	if rec.Expiry == nil || len(rec.Value) == 0 {
		return rec, false
	}
	return rec, true
}

// ttlMillis rounds up so that expiry is always strictly after the write.
func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if time.Duration(ms)*time.Millisecond < ttl {
		ms++
	}
	return ms
}
