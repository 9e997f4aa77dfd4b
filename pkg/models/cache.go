package models

import (
	"encoding/json"
	"time"
)

// CacheRecord is the serialized shape persisted under every namespaced key.
// Expiry is an absolute timestamp in epoch milliseconds.
type CacheRecord struct {
	Value  json.RawMessage `json:"value"`
	Expiry *int64          `json:"expiry"`
}

// CacheEntryInfo describes a stored entry without decoding its value.
type CacheEntryInfo struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int       `json:"size"`
	Expired   bool      `json:"expired"`
	Malformed bool      `json:"malformed"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries   int64 `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Faults    int64 `json:"faults"`
	Evictions int64 `json:"evictions"`
}
