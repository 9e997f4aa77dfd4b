package cache

import (
	"bytes"
	"encoding/json"
	"time"
)

var jsonNull = []byte("null")

// GetAs decodes the live value under key into T. A stored null, or a value
// that does not decode into T, is reported as a miss and left in place.
func GetAs[T any](c *Cache, key string) (out T, ok bool) {
	raw := c.Get(key)
	if raw == nil || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache value type mismatch")
		var zero T
		return zero, false
	}
	return out, true
}

// SetAs is Set restricted to values of type T.
func SetAs[T any](c *Cache, key string, value T, ttl time.Duration) bool {
	return c.Set(key, value, ttl)
}
