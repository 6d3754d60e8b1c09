package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestFileBackendRoundtrip(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "key", []byte("payload"), time.Hour))

	value, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), value)
}

func TestFileBackendMissOnUnknownKey(t *testing.T) {
	b := newTestFileBackend(t)

	_, ok, err := b.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBackendExpiresAfterTTL(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }
	require.NoError(t, b.Set(ctx, "key", []byte("payload"), time.Hour))

	// Still valid just inside the TTL.
	b.now = func() time.Time { return now.Add(59 * time.Minute) }
	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)

	// Past the TTL the entry reads as a miss and its files are removed.
	b.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok, err = b.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)

	_, statErr := os.Stat(b.payloadPath("key"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileBackendSweepExpired(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }
	require.NoError(t, b.Set(ctx, "old", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "fresh", []byte("2"), time.Hour))

	b.now = func() time.Time { return now.Add(30 * time.Minute) }
	cleared, err := b.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, ok, err := b.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileBackendDeleteIdempotent(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "key", []byte("payload"), time.Hour))
	require.NoError(t, b.Delete(ctx, "key"))
	require.NoError(t, b.Delete(ctx, "key"))

	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBackendPing(t *testing.T) {
	b := newTestFileBackend(t)
	assert.NoError(t, b.Ping(context.Background()))
}
