package timedstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/storage"
	"github.com/leonardcser/cachestorage/internal/timedstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)} }
func storeOf[T any](s storage.Storage, c *clock) *timedstore.Store[T] {
	return timedstore.New[T](s, timedstore.WithClock(c.now))
}

type user struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func TestStore_SetGet(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()

	users := storeOf[user](mem, c)
	want := user{ID: 7, Name: "ada", Roles: []string{"admin"}}
	require.NoError(t, users.Set("user:7", want, expiry.WithInterval(expiry.Hour), expiry.WithUnits(1)))

	got, ok, err := users.Get("user:7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	counts := storeOf[map[string]int](mem, c)
	require.NoError(t, counts.Set("counts", map[string]int{"a": 1}))
	m, ok, err := counts.Get("counts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, m)
}

func TestStore_PersistedFormat(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[string](mem, c)

	require.NoError(t, s.Set("greeting", "hi", expiry.WithInterval(expiry.Month), expiry.WithUnits(1)))

	raw, err := mem.GetItem("greeting")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"UNIQUE_KEY":"ucs","expiration":"2024-03-02T12:00:00.000Z","value":{"value":"hi","expiration":"2024-03-02T12:00:00.000Z"}}`,
		raw.MustGet())
}

func TestStore_ExpiredReadCleansUp(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[string](mem, c)

	require.NoError(t, s.Set("k", "v", expiry.WithInterval(expiry.Second), expiry.WithUnits(30)))

	c.advance(29 * time.Second)
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)

	c.advance(time.Second)
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "an entry is dead at its expiration instant")

	raw, err := mem.GetItem("k")
	require.NoError(t, err)
	assert.True(t, raw.IsAbsent(), "expired read must delete the entry")
}

func TestStore_FarFutureExpiry(t *testing.T) {
	tests := []struct {
		name    string
		opts    []expiry.Option
		wantISO string
	}{
		{"extended year", []expiry.Option{expiry.WithInterval(expiry.Year), expiry.WithUnits(8000)}, "+010024-01-31T12:00:00.000Z"},
		{"many days", []expiry.Option{expiry.WithInterval(expiry.Day), expiry.WithUnits(200000)}, "2571-08-31T12:00:00.000Z"},
		{"many hours", []expiry.Option{expiry.WithInterval(expiry.Hour), expiry.WithUnits(3000000)}, "2366-04-28T12:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock()
			mem := storage.NewMemory()
			s := storeOf[string](mem, c)

			require.NoError(t, s.Set("k", "v", tt.opts...))

			raw, err := mem.GetItem("k")
			require.NoError(t, err)
			assert.Contains(t, raw.MustGet(), `"expiration":"`+tt.wantISO+`"`)

			got, ok, err := s.Get("k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "v", got)

			removed, err := s.ClearExpired()
			require.NoError(t, err)
			assert.Zero(t, removed)
		})
	}
}

func TestStore_ExtendedYearEntryExpires(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[string](mem, c)
	require.NoError(t, s.Set("k", "v", expiry.WithInterval(expiry.Year), expiry.WithUnits(8000)))

	c.t = time.Date(10024, time.January, 31, 12, 0, 0, 0, time.UTC)
	removed, err := s.ClearExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	keys, _ := mem.Keys()
	assert.Empty(t, keys)
}

func TestStore_DefaultSpan(t *testing.T) {
	c := newClock()
	s := storeOf[int](storage.NewMemory(), c)
	require.NoError(t, s.Set("n", 1))

	c.advance(5*time.Minute - time.Millisecond)
	_, ok, _ := s.Get("n")
	assert.True(t, ok)

	c.advance(time.Millisecond)
	_, ok, _ = s.Get("n")
	assert.False(t, ok)
}

func TestStore_UnknownIntervalUsesFiveMinutes(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[int](mem, c)

	require.NoError(t, s.Set("a", 1, expiry.WithInterval("fortnight"), expiry.WithUnits(9)))
	require.NoError(t, s.Set("b", 1))

	a, _ := mem.GetItem("a")
	b, _ := mem.GetItem("b")
	assert.Equal(t, b.MustGet(), a.MustGet())
}

func TestStore_Delete(t *testing.T) {
	c := newClock()
	s := storeOf[string](storage.NewMemory(), c)

	require.NoError(t, s.Delete("never-set"))

	require.NoError(t, s.Set("k", "v", expiry.WithInterval(expiry.Year)))
	require.NoError(t, s.Delete("k"))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Overwrite(t *testing.T) {
	c := newClock()
	s := storeOf[string](storage.NewMemory(), c)

	require.NoError(t, s.Set("k", "old", expiry.WithInterval(expiry.Second), expiry.WithUnits(1)))
	require.NoError(t, s.Set("k", "new", expiry.WithInterval(expiry.Day)))

	c.advance(time.Hour)
	got, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestStore_CorruptEntriesAreMissesAndKept(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[int](mem, c)

	garbage := map[string]string{
		"truncated": `{"UNIQUE_KEY":"ucs","value":{`,
		"text":      "hello",
		"foreign":   `{"theme":"dark"}`,
		"wrongtype": `{"value":{"value":"seven","expiration":"2000-01-01T00:00:00.000Z"}}`,
	}
	for k, v := range garbage {
		require.NoError(t, mem.SetItem(k, v))
	}

	for k, v := range garbage {
		_, ok, err := s.Get(k)
		require.NoError(t, err, k)
		assert.False(t, ok, k)

		raw, err := mem.GetItem(k)
		require.NoError(t, err)
		assert.Equal(t, v, raw.MustGet(), "%s must be left untouched", k)
	}
}

func TestStore_SharedNamespace(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	a := storeOf[string](mem, c)
	b := storeOf[string](mem, c)

	require.NoError(t, a.Set("k", "from-a"))
	require.NoError(t, b.Set("k", "from-b"))

	got, ok, err := a.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "from-b", got)
}

func TestStore_ClearExpired(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()
	s := storeOf[string](mem, c)

	require.NoError(t, s.Set("stale-1", "x", expiry.WithInterval(expiry.Second), expiry.WithUnits(10)))
	require.NoError(t, s.Set("stale-2", "y", expiry.WithInterval(expiry.Minute), expiry.WithUnits(1)))
	require.NoError(t, s.Set("fresh", "z", expiry.WithInterval(expiry.Hour), expiry.WithUnits(1)))
	require.NoError(t, mem.SetItem("foreign", "{not json"))

	c.advance(time.Minute)
	removed, err := s.ClearExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err := mem.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"foreign", "fresh"}, keys)

	raw, _ := mem.GetItem("foreign")
	assert.Equal(t, "{not json", raw.MustGet())
}

func TestStore_ClearExpiredIgnoresMarkerAndPayloadType(t *testing.T) {
	c := newClock()
	mem := storage.NewMemory()

	// Shaped like an envelope but written by someone else, without a marker.
	require.NoError(t, mem.SetItem("lookalike", `{"value":{"value":[1,2],"expiration":"2020-01-01T00:00:00.000Z"}}`))
	require.NoError(t, storeOf[int](mem, c).Set("number", 1, expiry.WithInterval(expiry.Second), expiry.WithUnits(1)))

	c.advance(time.Second)
	removed, err := storeOf[string](mem, c).ClearExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, _ := mem.Keys()
	assert.Empty(t, keys)
}

var errBoom = errors.New("quota exceeded")

type faultyStorage struct {
	storage.Storage
	getErr, setErr, removeErr, keysErr error
}

func (f *faultyStorage) GetItem(key string) (mo.Option[string], error) {
	if f.getErr != nil {
		return mo.None[string](), f.getErr
	}
	return f.Storage.GetItem(key)
}

func (f *faultyStorage) SetItem(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Storage.SetItem(key, value)
}

func (f *faultyStorage) RemoveItem(key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Storage.RemoveItem(key)
}

func (f *faultyStorage) Keys() ([]string, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	return f.Storage.Keys()
}

func TestStore_StorageErrorsPropagate(t *testing.T) {
	c := newClock()
	fs := &faultyStorage{Storage: storage.NewMemory()}
	s := storeOf[string](fs, c)

	fs.setErr = errBoom
	assert.ErrorIs(t, s.Set("k", "v"), errBoom)
	fs.setErr = nil

	require.NoError(t, s.Set("k", "v", expiry.WithInterval(expiry.Second), expiry.WithUnits(1)))

	fs.getErr = errBoom
	_, _, err := s.Get("k")
	assert.ErrorIs(t, err, errBoom)
	fs.getErr = nil

	c.advance(time.Minute)
	fs.removeErr = errBoom
	_, ok, err := s.Get("k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBoom, "failed eviction is not swallowed")

	_, err = s.ClearExpired()
	assert.ErrorIs(t, err, errBoom)
	fs.removeErr = nil

	fs.keysErr = errBoom
	_, err = s.ClearExpired()
	assert.ErrorIs(t, err, errBoom)
}

func TestStore_UnencodableValue(t *testing.T) {
	s := storeOf[func()](storage.NewMemory(), newClock())
	assert.Error(t, s.Set("fn", func() {}))
}
