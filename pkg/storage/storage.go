// Package storage defines the synchronous string-keyed medium the cache is
// persisted in, plus shared errors for its backends.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// medium's capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Storage is a string-keyed key-value medium. Implementations must be safe
// for concurrent use.
type Storage interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists every stored key that starts with prefix. An empty prefix
	// lists all keys.
	Keys(prefix string) ([]string, error)
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}

// Close releases s if it holds resources.
func Close(s Storage) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
