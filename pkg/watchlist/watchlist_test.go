package watchlist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-librarian/internal/config"
	"github.com/teslashibe/go-librarian/pkg/catalog"
)

func ids(list []Entry) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.BookID
	}
	return out
}

func entry(id string) Entry {
	return NewEntry(catalog.Book{ID: id, Title: "title " + id, List: "shelf"}, time.Now())
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	list, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = s.Add(ctx, entry("A01"))
	require.NoError(t, err)
	list, err = s.Add(ctx, entry("B12"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B12", "A01"}, ids(list), "newest first")

	dup := entry("A01")
	dup.Title = "changed"
	list, err = s.Add(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, []string{"B12", "A01"}, ids(list), "duplicate add is a no-op")
	assert.Equal(t, "title A01", list[1].Title)

	list, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B12", "A01"}, ids(list))
	assert.Equal(t, "shelf", list[0].List)

	list, err = s.Remove(ctx, "B12")
	require.NoError(t, err)
	assert.Equal(t, []string{"A01"}, ids(list))

	list, err = s.Remove(ctx, "Z99")
	require.NoError(t, err)
	assert.Equal(t, []string{"A01"}, ids(list), "removing a missing id is harmless")

	require.NoError(t, s.Clear(ctx))
	list, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "watchlist.json")
	s, err := NewJSONStore(path, nil)
	require.NoError(t, err)
	storeContract(t, s)
}

func TestJSONStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	ctx := context.Background()

	s, err := NewJSONStore(path, nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, entry("C101"))
	require.NoError(t, err)

	reopened, err := NewJSONStore(path, nil)
	require.NoError(t, err)
	list, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C101"}, ids(list))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file renamed away")
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewJSONStore(path, nil)
	require.NoError(t, err)

	list, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.Add(context.Background(), entry("A02"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A02"}, ids(list))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStoreReAddMovesToFront(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"A01", "A02", "A05"} {
		_, err := s.Add(ctx, entry(id))
		require.NoError(t, err)
	}
	_, err = s.Remove(ctx, "A01")
	require.NoError(t, err)
	list, err := s.Add(ctx, entry("A01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A01", "A05", "A02"}, ids(list))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := DialRedis(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)

	s := NewRedisStore(rdb, "", nil)
	defer s.Close()
	storeContract(t, s)

	_, err = s.Add(ctx, entry("C07"))
	require.NoError(t, err)
	raw, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"C07"`)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("wl", "{not json"))

	rdb, err := DialRedis(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	s := NewRedisStore(rdb, "wl", nil)
	defer s.Close()

	list, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.Add(ctx, entry("A01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A01"}, ids(list))
}

func TestRedisStoreConcurrentAdds(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := DialRedis(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	s := NewRedisStore(rdb, "", nil)
	defer s.Close()

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, entry(fmt.Sprintf("A%02d", i)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failed int
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, redis.TxFailedErr)
			failed++
		}
	}
	list, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, list, writers-failed, "no committed entry is lost")
}

func TestRedisDialFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := DialRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, config.Watchlist{Backend: config.BackendJSON, JSONPath: filepath.Join(dir, "w.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(ctx, config.Watchlist{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "w.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.Watchlist{Backend: config.BackendRedis, RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	_, err = Open(ctx, config.Watchlist{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestPrepend(t *testing.T) {
	list, added := prepend(nil, entry("A01"))
	assert.True(t, added)
	list, added = prepend(list, entry("A01"))
	assert.False(t, added)
	assert.Len(t, list, 1)
}
