package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedBackend struct {
	mu   sync.Mutex
	name string
	data map[string][]byte
	fail bool
}

func newNamedBackend(name string) *namedBackend {
	return &namedBackend{name: name, data: make(map[string][]byte)}
}

func (b *namedBackend) setFail(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

func (b *namedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, false, errors.New(b.name + " down")
	}
	value, ok := b.data[key]
	return value, ok, nil
}

func (b *namedBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New(b.name + " down")
	}
	b.data[key] = value
	return nil
}

func (b *namedBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *namedBackend) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New(b.name + " down")
	}
	return nil
}

func (b *namedBackend) Name() string { return b.name }

func TestFailoverServesRemoteWhenHealthy(t *testing.T) {
	remote := newNamedBackend("redis")
	local := newNamedBackend("file")
	fb := NewFailoverBackend(remote, local, time.Hour)
	ctx := context.Background()

	require.NoError(t, fb.Set(ctx, "key", []byte("v"), time.Hour))
	assert.Contains(t, remote.data, "key")
	assert.NotContains(t, local.data, "key")
	assert.Equal(t, "redis", fb.Name())
}

func TestFailoverDegradesToLocalOnRemoteError(t *testing.T) {
	remote := newNamedBackend("redis")
	local := newNamedBackend("file")
	fb := NewFailoverBackend(remote, local, time.Hour)
	ctx := context.Background()

	remote.setFail(true)

	// The remote failure is absorbed; the call succeeds on the local tier.
	require.NoError(t, fb.Set(ctx, "key", []byte("v"), time.Hour))
	assert.Contains(t, local.data, "key")
	assert.Equal(t, "file", fb.Name())

	value, ok, err := fb.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestFailoverGetErrorFallsThroughToLocal(t *testing.T) {
	remote := newNamedBackend("redis")
	local := newNamedBackend("file")
	local.data["key"] = []byte("local copy")
	fb := NewFailoverBackend(remote, local, time.Hour)

	remote.setFail(true)

	value, ok, err := fb.Get(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("local copy"), value)
}

func TestFailoverProbeRestoresRemote(t *testing.T) {
	remote := newNamedBackend("redis")
	local := newNamedBackend("file")
	fb := NewFailoverBackend(remote, local, 5*time.Millisecond)
	defer fb.Close()

	remote.setFail(true)
	_, _, _ = fb.Get(context.Background(), "key")
	require.Equal(t, "file", fb.Name())

	fb.StartProbe(context.Background())
	remote.setFail(false)

	require.Eventually(t, func() bool {
		return fb.Name() == "redis"
	}, time.Second, 5*time.Millisecond)
}

func TestFailoverDeleteClearsBothTiers(t *testing.T) {
	remote := newNamedBackend("redis")
	local := newNamedBackend("file")
	remote.data["key"] = []byte("r")
	local.data["key"] = []byte("l")
	fb := NewFailoverBackend(remote, local, time.Hour)

	require.NoError(t, fb.Delete(context.Background(), "key"))
	assert.NotContains(t, remote.data, "key")
	assert.NotContains(t, local.data, "key")
}
