// Package memory provides an in-process storage medium with an optional
// capacity limit.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/kubdash/kubdash/pkg/storage"
)

// Store keeps values in a map. When MaxBytes is positive, writes that would
// push the summed key and value lengths above it fail with
// storage.ErrQuotaExceeded.
type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	size     int
	maxBytes int
}

// New creates a Store. maxBytes <= 0 means unlimited.
func New(maxBytes int) *Store {
	return &Store{data: map[string]string{}, maxBytes: maxBytes}
}

func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size + len(key) + len(value)
	if old, ok := s.data[key]; ok {
		size -= len(key) + len(old)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return storage.ErrQuotaExceeded
	}
	s.data[key] = value
	s.size = size
	return nil
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Size returns the bytes currently accounted against the quota.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

var _ storage.Storage = (*Store)(nil)
