package cache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// FailoverBackend serves from a remote tier and degrades to the local tier
// whenever the remote fails. A background probe restores remote use once it
// answers pings again. Callers never see the outage; only latency and
// durability change.
type FailoverBackend struct {
	remote Backend
	local  Backend

	remoteDown    atomic.Bool
	probeInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFailoverBackend(remote, local Backend, probeInterval time.Duration) *FailoverBackend {
	if probeInterval <= 0 {
		probeInterval = 15 * time.Second
	}
	return &FailoverBackend{
		remote:        remote,
		local:         local,
		probeInterval: probeInterval,
	}
}

// Name reports the tier currently in use.
func (b *FailoverBackend) Name() string {
	if b.remoteDown.Load() {
		return b.local.Name()
	}
	return b.remote.Name()
}

func (b *FailoverBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !b.remoteDown.Load() {
		value, ok, err := b.remote.Get(ctx, key)
		if err == nil {
			return value, ok, nil
		}
		b.markDown(err)
	}
	return b.local.Get(ctx, key)
}

func (b *FailoverBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !b.remoteDown.Load() {
		err := b.remote.Set(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		b.markDown(err)
	}
	return b.local.Set(ctx, key, value, ttl)
}

func (b *FailoverBackend) Delete(ctx context.Context, key string) error {
	// Best effort on both tiers so an entry written during an outage does not
	// resurface after recovery.
	var remoteErr error
	if !b.remoteDown.Load() {
		if remoteErr = b.remote.Delete(ctx, key); remoteErr != nil {
			b.markDown(remoteErr)
		}
	}
	return b.local.Delete(ctx, key)
}

func (b *FailoverBackend) Ping(ctx context.Context) error {
	if b.remoteDown.Load() {
		return b.local.Ping(ctx)
	}
	return b.remote.Ping(ctx)
}

// StartProbe launches the background health probe. Call Close to stop it.
func (b *FailoverBackend) StartProbe(ctx context.Context) {
	probeCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
				if !b.remoteDown.Load() {
					continue
				}
				pingCtx, pingCancel := context.WithTimeout(probeCtx, 3*time.Second)
				err := b.remote.Ping(pingCtx)
				pingCancel()
				if err == nil {
					b.remoteDown.Store(false)
					log.Printf("cache backend %s recovered, leaving %s fallback", b.remote.Name(), b.local.Name())
				}
			}
		}
	}()
}

func (b *FailoverBackend) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *FailoverBackend) markDown(err error) {
	if b.remoteDown.CompareAndSwap(false, true) {
		log.Printf("cache backend %s unavailable, falling back to %s: %v", b.remote.Name(), b.local.Name(), err)
	}
}
