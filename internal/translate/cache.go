package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Key identifies one cached translation.
type Key struct {
	Hash   string
	Source string
	Target string
}

func NewKey(text, source, target string) Key {
	sum := sha256.Sum256([]byte(text))
	return Key{Hash: hex.EncodeToString(sum[:]), Source: source, Target: target}
}

func (k Key) String() string {
	return k.Source + ":" + k.Target + ":" + k.Hash
}

// Cache stores translations. Implementations must be safe for concurrent use;
// a second Set for the same key overwrites the first.
type Cache interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Set(ctx context.Context, key Key, value string) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Key]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Key]string)}
}

func (c *MemoryCache) Get(_ context.Context, key Key) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key Key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *MemoryCache) Len(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]string)
	return nil
}

func (c *MemoryCache) Close() error { return nil }
