package cache

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/stretchr/testify/require"

	"github.com/kubdash/kubdash/pkg/storage"
	"github.com/kubdash/kubdash/pkg/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// faultyStore fails the operations whose flag is set.
type faultyStore struct {
	*memory.Store
	failGet, failSet, failRemove, failKeys bool
}

var errBroken = errors.New("broken medium")

func (f *faultyStore) Get(key string) (string, error) {
	if f.failGet {
		return "", errBroken
	}
	return f.Store.Get(key)
}

func (f *faultyStore) Set(key, value string) error {
	if f.failSet {
		return errBroken
	}
	return f.Store.Set(key, value)
}

func (f *faultyStore) Remove(key string) error {
	if f.failRemove {
		return errBroken
	}
	return f.Store.Remove(key)
}

func (f *faultyStore) Keys(prefix string) ([]string, error) {
	if f.failKeys {
		return nil, errBroken
	}
	return f.Store.Keys(prefix)
}

func quietLogger() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

func newTestCache(t *testing.T, store storage.Storage) (*Cache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return New(store, WithClock(clock), WithLogger(quietLogger())), clock
}

func TestSetThenGet(t *testing.T) {
	c, clock := newTestCache(t, memory.New(0))

	require.True(t, c.Set("users:all", []map[string]int{{"id": 1}}, 120*time.Second))
	require.JSONEq(t, `[{"id":1}]`, string(c.Get("users:all")))

	clock.Advance(121 * time.Second)
	require.Nil(t, c.Get("users:all"))
}

func TestExpiredEntryIsEvictedOnRead(t *testing.T) {
	store := memory.New(0)
	c, clock := newTestCache(t, store)

	require.True(t, c.Set("user:1", map[string]any{"id": 1}, time.Minute))
	clock.Advance(time.Minute)

	v, res := c.Lookup("user:1")
	require.Nil(t, v)
	require.Equal(t, Miss, res)

	keys, err := store.Keys("")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestDefaultTTL(t *testing.T) {
	c, clock := newTestCache(t, memory.New(0))

	require.True(t, c.Set("user:5", map[string]any{"id": 5, "name": "Ann"}, 0))

	clock.Advance(DefaultTTL - time.Millisecond)
	require.NotNil(t, c.Get("user:5"))

	clock.Advance(time.Millisecond)
	require.Nil(t, c.Get("user:5"))
}

func TestWithDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(memory.New(0), WithClock(clock), WithDefaultTTL(time.Second), WithLogger(quietLogger()))

	require.True(t, c.Set("k", 1, -5))
	clock.Advance(time.Second)
	require.Nil(t, c.Get("k"))
}

func TestRecordShape(t *testing.T) {
	store := memory.New(0)
	c, clock := newTestCache(t, store)

	require.True(t, c.Set("user:42", map[string]string{"email": "a@b.c"}, TTLMedium))

	raw, err := store.Get("kub_cache_user:42")
	require.NoError(t, err)

	var rec struct {
		Value  map[string]string `json:"value"`
		Expiry int64             `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	require.Equal(t, "a@b.c", rec.Value["email"])
	require.Equal(t, clock.Now().UnixMilli()+TTLMedium.Milliseconds(), rec.Expiry)
}

func TestSubMillisecondTTLStillExpiresAfterWrite(t *testing.T) {
	c, clock := newTestCache(t, memory.New(0))

	require.True(t, c.Set("k", "v", time.Nanosecond))
	require.NotNil(t, c.Get("k"))

	clock.Advance(time.Millisecond)
	require.Nil(t, c.Get("k"))
}

func TestOverwrite(t *testing.T) {
	c, _ := newTestCache(t, memory.New(0))

	require.True(t, c.Set("k", "first", 0))
	require.True(t, c.Set("k", "second", 0))
	require.JSONEq(t, `"second"`, string(c.Get("k")))
}

func TestEmptyKey(t *testing.T) {
	c, _ := newTestCache(t, memory.New(0))

	require.False(t, c.Set("", "v", 0))
	require.Nil(t, c.Get(""))
	require.False(t, c.Remove(""))
}

func TestRemove(t *testing.T) {
	c, _ := newTestCache(t, memory.New(0))

	require.True(t, c.Remove("never"))

	require.True(t, c.Set("k", "v", 0))
	require.True(t, c.Remove("k"))
	require.Nil(t, c.Get("k"))
}

func TestClear(t *testing.T) {
	store := memory.New(0)
	c, _ := newTestCache(t, store)

	require.True(t, c.Set("user:5", map[string]any{"id": 5, "name": "Ann"}, 0))
	require.True(t, c.Set("users:all", []int{5}, 0))
	require.NoError(t, store.Set("token", "secret"))

	require.True(t, c.Clear())
	require.Nil(t, c.Get("user:5"))

	keys, err := store.Keys(DefaultPrefix)
	require.NoError(t, err)
	require.Empty(t, keys)

	token, err := store.Get("token")
	require.NoError(t, err)
	require.Equal(t, "secret", token)
}

func TestPrune(t *testing.T) {
	store := memory.New(0)
	c, clock := newTestCache(t, store)

	require.True(t, c.Set("short", "a", time.Minute))
	require.True(t, c.Set("long", map[string]int{"id": 7}, time.Hour))
	require.NoError(t, store.Set(DefaultPrefix+"corrupt", "{not json"))
	require.NoError(t, store.Set("token", "secret"))

	clock.Advance(2 * time.Minute)
	require.True(t, c.Prune())

	keys, err := store.Keys("")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{DefaultPrefix + "long", "token"}, keys)
	require.JSONEq(t, `{"id":7}`, string(c.Get("long")))
}

func TestMalformedRecords(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       "definitely not json",
		"missing expiry": `{"value":{"id":1}}`,
		"missing value":  `{"expiry":99999999999999}`,
		"bad expiry":     `{"value":1,"expiry":"soon"}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.New(0)
			c, _ := newTestCache(t, store)
			require.NoError(t, store.Set(DefaultPrefix+"user:1", raw))

			v, res := c.Lookup("user:1")
			require.Nil(t, v)
			require.Equal(t, Miss, res)

			_, err := store.Get(DefaultPrefix + "user:1")
			require.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestQuotaExceeded(t *testing.T) {
	c, _ := newTestCache(t, memory.New(64))

	require.False(t, c.Set("big", make([]int, 100), 0))
	require.Nil(t, c.Get("big"))

	stats, err := c.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Faults)
}

func TestUnencodableValue(t *testing.T) {
	c, _ := newTestCache(t, memory.New(0))
	require.False(t, c.Set("ch", make(chan int), 0))
}

func TestStorageFaults(t *testing.T) {
	store := &faultyStore{Store: memory.New(0)}
	c, _ := newTestCache(t, store)
	require.True(t, c.Set("k", "v", 0))

	store.failGet = true
	v, res := c.Lookup("k")
	require.Nil(t, v)
	require.Equal(t, Fault, res)
	require.False(t, c.Prune())
	store.failGet = false

	store.failSet = true
	require.False(t, c.Set("k", "w", 0))
	store.failSet = false

	store.failRemove = true
	require.False(t, c.Remove("k"))
	require.False(t, c.Clear())
	store.failRemove = false

	store.failKeys = true
	require.False(t, c.Clear())
	require.False(t, c.Prune())
	store.failKeys = false

	require.JSONEq(t, `"v"`, string(c.Get("k")))
}

func TestGetAs(t *testing.T) {
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	store := memory.New(0)
	c, _ := newTestCache(t, store)

	require.True(t, SetAs(c, "user:5", user{ID: 5, Name: "Ann"}, 0))

	u, ok := GetAs[user](c, "user:5")
	require.True(t, ok)
	require.Equal(t, user{ID: 5, Name: "Ann"}, u)

	_, ok = GetAs[[]user](c, "user:5")
	require.False(t, ok)
	// A type mismatch is not a malformed record.
	_, err := store.Get(DefaultPrefix + "user:5")
	require.NoError(t, err)

	_, ok = GetAs[user](c, "user:6")
	require.False(t, ok)
}

func TestGetAsStoredNull(t *testing.T) {
	type user struct {
		ID int `json:"id"`
	}
	now := time.UnixMilli(1_700_000_000_000)
	c := New(memory.New(0), WithClock(ClockFunc(func() time.Time { return now })), WithLogger(quietLogger()))

	require.True(t, c.Set("user:9", nil, time.Minute))
	require.JSONEq(t, "null", string(c.Get("user:9")))

	u, ok := GetAs[*user](c, "user:9")
	require.False(t, ok)
	require.Nil(t, u)

	_, ok = GetAs[user](c, "user:9")
	require.False(t, ok)

	now = now.Add(time.Minute)
	require.Nil(t, c.Get("user:9"))
}

func TestStatsAndEntries(t *testing.T) {
	store := memory.New(0)
	c, clock := newTestCache(t, store)

	require.True(t, c.Set("a", 1, time.Minute))
	require.True(t, c.Set("b", 2, time.Hour))
	require.NoError(t, store.Set(DefaultPrefix+"bad", "x"))

	c.Get("a")
	c.Get("missing")
	clock.Advance(2 * time.Minute)

	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	byKey := map[string]bool{}
	for _, e := range entries {
		switch e.Key {
		case "a":
			require.True(t, e.Expired)
		case "b":
			require.False(t, e.Expired)
			require.Equal(t, clock.Now().Add(58*time.Minute).UnixMilli(), e.ExpiresAt.UnixMilli())
		case "bad":
			require.True(t, e.Malformed)
		}
		byKey[e.Key] = true
	}
	require.Len(t, byKey, 3)

	stats, err := c.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Entries)
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, 0, stats.Evictions)

	require.True(t, c.Prune())
	stats, err = c.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Entries)
	require.EqualValues(t, 2, stats.Evictions)
}

func TestCustomPrefix(t *testing.T) {
	store := memory.New(0)
	clock := newFakeClock()
	c := New(store, WithPrefix("other_"), WithClock(clock), WithLogger(quietLogger()))
	d := New(store, WithClock(clock), WithLogger(quietLogger()))

	require.True(t, c.Set("k", 1, 0))
	require.True(t, d.Set("k", 2, 0))
	require.True(t, d.Clear())

	require.JSONEq(t, `1`, string(c.Get("k")))
	require.Equal(t, "other_", c.Prefix())
}

func TestResultString(t *testing.T) {
	require.Equal(t, "hit", Hit.String())
	require.Equal(t, "miss", Miss.String())
	require.Equal(t, "fault", Fault.String())
}
