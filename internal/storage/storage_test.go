package storage_test

import (
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/cachestorage/internal/storage"
)

func hosts(t *testing.T) map[string]storage.Storage {
	t.Helper()

	b, err := storage.OpenBolt(filepath.Join(t.TempDir(), "nested", "local.bbolt"), storage.BoltOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	mr := miniredis.RunT(t)
	r, err := storage.OpenRedis(storage.RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return map[string]storage.Storage{
		"memory": storage.NewMemory(),
		"bolt":   b,
		"redis":  r,
		"client": startDaemon(t, storage.NewMemory()),
	}
}

func startDaemon(t *testing.T, backing storage.Storage) *storage.Client {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "s.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() { _ = storage.NewServer(backing).Serve(l) }()
	return storage.NewClient(sock)
}

func TestStorage_Contract(t *testing.T) {
	for name, s := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			v, err := s.GetItem("missing")
			require.NoError(t, err)
			assert.True(t, v.IsAbsent())

			require.NoError(t, s.SetItem("a", `{"x":1}`))
			require.NoError(t, s.SetItem("b", "plain"))
			require.NoError(t, s.SetItem("a", "overwritten"))

			v, err = s.GetItem("a")
			require.NoError(t, err)
			assert.Equal(t, "overwritten", v.MustGet())

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, keys)

			require.NoError(t, s.RemoveItem("a"))
			require.NoError(t, s.RemoveItem("a"), "removing a missing key is not an error")

			v, err = s.GetItem("a")
			require.NoError(t, err)
			assert.True(t, v.IsAbsent())
		})
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.bbolt")

	b, err := storage.OpenBolt(path, storage.BoltOptions{Bucket: "prefs"})
	require.NoError(t, err)
	require.NoError(t, b.SetItem("theme", "dark"))
	require.NoError(t, b.Close())

	b, err = storage.OpenBolt(path, storage.BoltOptions{Bucket: "prefs"})
	require.NoError(t, err)
	defer b.Close()

	v, err := b.GetItem("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v.MustGet())
}

func TestRedis_KeysStayWithinPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("other:key", "x"))

	r, err := storage.OpenRedis(storage.RedisOptions{Addr: mr.Addr(), Prefix: "app:"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetItem("k", "v"))
	got, err := mr.Get("app:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := storage.OpenRedis(storage.RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestMemory_Closed(t *testing.T) {
	m := storage.NewMemory()
	require.NoError(t, m.SetItem("k", "v"))
	require.NoError(t, m.Close())

	_, err := m.GetItem("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, m.SetItem("k", "v"), storage.ErrClosed)
}

func TestClient_PropagatesStorageErrors(t *testing.T) {
	backing := storage.NewMemory()
	client := startDaemon(t, backing)
	require.NoError(t, backing.Close())

	err := client.SetItem("k", "v")
	assert.True(t, errors.Is(err, storage.ErrClosed), "got %v", err)

	_, err = client.Keys()
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestClient_NoDaemon(t *testing.T) {
	client := storage.NewClient(filepath.Join(t.TempDir(), "none.sock"))
	assert.Error(t, client.Probe())
	_, err := client.GetItem("k")
	assert.Error(t, err)
}

func TestParseNamespace(t *testing.T) {
	ns, err := storage.ParseNamespace("")
	require.NoError(t, err)
	assert.Equal(t, storage.Local, ns)

	ns, err = storage.ParseNamespace("session")
	require.NoError(t, err)
	assert.Equal(t, storage.Session, ns)

	_, err = storage.ParseNamespace("cookie")
	assert.ErrorIs(t, err, storage.ErrUnknownNamespace)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := storage.NewRegistry()
	local := storage.NewMemory()
	reg.Register(storage.Local, local)

	got, err := reg.Lookup("")
	require.NoError(t, err)
	assert.Same(t, local, got)

	_, err = reg.Lookup(storage.Session)
	assert.ErrorIs(t, err, storage.ErrUnknownNamespace)
}
