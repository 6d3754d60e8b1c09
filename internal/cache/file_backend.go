package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type fileMeta struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileBackend stores one payload file per key plus a small JSON sidecar
// recording creation time and expiry. Expired entries are removed lazily on
// read or by SweepExpired.
type FileBackend struct {
	dir string
	now func() time.Time
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir failed: %w", err)
	}
	return &FileBackend{dir: dir, now: time.Now}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	metaRaw, err := os.ReadFile(b.metaPath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache meta failed: %w", err)
	}

	var meta fileMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false, fmt.Errorf("decode cache meta failed: %w", err)
	}
	if b.now().After(meta.ExpiresAt) {
		_ = b.Delete(ctx, key)
		return nil, false, nil
	}

	payload, err := os.ReadFile(b.payloadPath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache payload failed: %w", err)
	}
	return payload, true, nil
}

func (b *FileBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := b.now()
	meta := fileMeta{CreatedAt: now, ExpiresAt: now.Add(ttl)}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode cache meta failed: %w", err)
	}
	if err := os.WriteFile(b.payloadPath(key), value, 0o644); err != nil {
		return fmt.Errorf("write cache payload failed: %w", err)
	}
	if err := os.WriteFile(b.metaPath(key), metaRaw, 0o644); err != nil {
		return fmt.Errorf("write cache meta failed: %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(ctx context.Context, key string) error {
	if err := os.Remove(b.payloadPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache payload failed: %w", err)
	}
	if err := os.Remove(b.metaPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache meta failed: %w", err)
	}
	return nil
}

func (b *FileBackend) Ping(ctx context.Context) error {
	_, err := os.Stat(b.dir)
	return err
}

// SweepExpired removes every entry whose TTL has elapsed and returns the
// number of entries cleared.
func (b *FileBackend) SweepExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir failed: %w", err)
	}

	cleared := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		key := strings.TrimSuffix(name, ".meta.json")

		metaRaw, err := os.ReadFile(filepath.Join(b.dir, name))
		if err != nil {
			continue
		}
		var meta fileMeta
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			continue
		}
		if b.now().After(meta.ExpiresAt) {
			if err := b.Delete(ctx, key); err == nil {
				cleared++
			}
		}
	}
	return cleared, nil
}

func (b *FileBackend) payloadPath(key string) string {
	return filepath.Join(b.dir, key+".bin")
}

func (b *FileBackend) metaPath(key string) string {
	return filepath.Join(b.dir, key+".meta.json")
}
