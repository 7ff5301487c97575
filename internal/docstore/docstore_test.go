package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestLocalReadWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	store := NewLocal(dir)

	got, err := Read(ctx, store, "records.json", []record{})
	require.NoError(t, err)
	assert.Empty(t, got)

	want := []record{{ID: "a", Count: 1}, {ID: "b", Count: 2}}
	require.NoError(t, Write(ctx, store, "records.json", want))

	got, err = Read(ctx, store, "records.json", []record{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(filepath.Join(dir, "records.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n  {"), "documents are written with two-space indentation")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalRejectsPathNames(t *testing.T) {
	store := NewLocal(t.TempDir())

	for _, name := range []string{"", "../x.json", "a/b.json"} {
		_, err := store.Get(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestReadMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))

	_, err := Read(context.Background(), NewLocal(dir), "bad.json", []record{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	copyErr  error
	getErr   error
	putCalls int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (f *fakeObjects) PutObject(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) CopyObject(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	b, ok := f.objects[src]
	if !ok {
		return ErrNotFound
	}
	f.objects[dst] = b
	return nil
}

func (f *fakeObjects) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ObjectInfo
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k})
		}
	}
	return out, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func steppedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestS3WriteKeepsNewestBackups(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	store := NewS3(objects, S3Options{Prefix: "data/"})
	store.now = steppedClock()

	for i := 1; i <= 12; i++ {
		require.NoError(t, Write(ctx, store, "bookings.json", []record{{ID: "b", Count: i}}))
	}
	require.NoError(t, store.Close())

	got, err := Read(ctx, store, "bookings.json", []record{})
	require.NoError(t, err)
	assert.Equal(t, 12, got[0].Count)

	backups := objects.keys("data/backups/bookings.json/")
	require.Len(t, backups, 10)
	assert.Equal(t, "data/backups/bookings.json/20250101T100012.000000000Z.json", backups[len(backups)-1])
	assert.Equal(t, "data/backups/bookings.json/20250101T100003.000000000Z.json", backups[0])
}

func TestS3BackupFailureDoesNotBlockWrite(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	objects.objects["time-slots.json"] = []byte("[]")
	objects.copyErr = errors.New("access denied")

	store := NewS3(objects, S3Options{})
	require.NoError(t, Write(ctx, store, "time-slots.json", []record{{ID: "s"}}))
	require.NoError(t, store.Close())

	assert.Equal(t, 1, objects.putCalls)
	assert.Empty(t, objects.keys("backups/"))
}

func TestS3ReadFailures(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	store := NewS3(objects, S3Options{})

	got, err := Read(ctx, store, "reviews.json", []record{{ID: "default"}})
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "default"}}, got)

	objects.getErr = errors.New("connection refused")
	_, err = Read(ctx, store, "reviews.json", []record{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSelectBackend(t *testing.T) {
	full := S3Config{Endpoint: "https://s3.example.com", Bucket: "b", AccessKey: "a", SecretKey: "s"}
	partial := full
	partial.SecretKey = ""

	assert.Equal(t, BackendS3, SelectBackend(full, "postgres://x"))
	assert.Equal(t, BackendPostgres, SelectBackend(partial, "postgres://x"))
	assert.Equal(t, BackendLocal, SelectBackend(partial, ""))
}

func TestParseEndpoint(t *testing.T) {
	host, secure, err := parseEndpoint("http://localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure, err = parseEndpoint("fsn1.your-objectstorage.com")
	require.NoError(t, err)
	assert.Equal(t, "fsn1.your-objectstorage.com", host)
	assert.True(t, secure)
}

func TestLazyResolvesOnceAndRetriesFailures(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fail := true
	local := NewLocal(t.TempDir())

	lazy := NewLazy(func(context.Context) (Store, error) {
		calls++
		if fail {
			return nil, errors.New("dial tcp: refused")
		}
		return local, nil
	})

	_, err := lazy.Get(ctx, "x.json")
	assert.ErrorIs(t, err, ErrUnavailable)

	fail = false
	require.NoError(t, Write(ctx, lazy, "x.json", []record{{ID: "x"}}))
	_, err = Read(ctx, lazy, "x.json", []record{})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.NoError(t, lazy.Close())
}
