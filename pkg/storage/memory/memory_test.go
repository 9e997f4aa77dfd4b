package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kubdash/kubdash/pkg/storage"
)

func TestStore(t *testing.T) {
	s := New(0)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set("a:1", "one"))
	require.NoError(t, s.Set("a:2", "two"))
	require.NoError(t, s.Set("b:1", "other"))

	v, err := s.Get("a:1")
	require.NoError(t, err)
	require.Equal(t, "one", v)

	keys, err := s.Keys("a:")
	require.NoError(t, err)
	require.Equal(t, []string{"a:1", "a:2"}, keys)

	all, err := s.Keys("")
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, s.Remove("a:1"))
	require.NoError(t, s.Remove("a:1"))
	_, err = s.Get("a:1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQuota(t *testing.T) {
	s := New(10)

	require.NoError(t, s.Set("k", "12345"))
	require.Equal(t, 6, s.Size())

	require.ErrorIs(t, s.Set("x", "123456789"), storage.ErrQuotaExceeded)
	_, err := s.Get("x")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Overwrites are accounted net of the replaced value.
	require.NoError(t, s.Set("k", "123456789"))
	require.Equal(t, 10, s.Size())

	require.NoError(t, s.Remove("k"))
	require.Equal(t, 0, s.Size())
}
