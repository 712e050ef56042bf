// Package embedcache implements the optional Embedding Cache (spec.md
// §3, §4.4): hash(text) -> vector, surviving process restarts when a
// cache directory is configured.
//
// Grounded on the on-disk JSON persistence style of
// internal/observability/logging.go's file-writer setup and the
// key-value cache shape of internal/persistence/databases (Redis client
// usage), generalized into a local file cache with an optional
// Redis-backed shared tier.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// HashText returns the stable cache key for a chunk of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache is an on-disk JSON map, flushing to disk every flushEvery
// additions (spec.md §4.4: "Cache writes flush to disk every N additions
// (e.g. 100)"). Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	path       string
	flushEvery int
	dirty      int
	entries    map[string][]float32

	shared *RedisTier // optional, checked before falling back to entries
}

// New loads path if it exists, or starts empty. path == "" disables disk
// persistence entirely (in-memory only, spec.md: "optional").
func New(path string, flushEvery int, shared *RedisTier) *Cache {
	if flushEvery <= 0 {
		flushEvery = 100
	}
	c := &Cache{path: path, flushEvery: flushEvery, entries: make(map[string][]float32), shared: shared}
	if path == "" {
		return c
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(data, &c.entries)
	return c
}

// Get returns the cached vector for text's hash, checking the shared Redis
// tier first when configured.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := HashText(text)
	if c.shared != nil {
		if v, ok := c.shared.Get(ctx, key); ok {
			return v, true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put inserts text's vector, flushing to disk every flushEvery additions.
func (c *Cache) Put(ctx context.Context, text string, vector []float32) {
	key := HashText(text)
	if c.shared != nil {
		c.shared.Put(ctx, key, vector)
	}
	c.mu.Lock()
	c.entries[key] = vector
	c.dirty++
	shouldFlush := c.dirty >= c.flushEvery
	if shouldFlush {
		c.dirty = 0
	}
	c.mu.Unlock()

	if shouldFlush {
		_ = c.Flush()
	}
}

// Flush writes the full cache to disk immediately. No-op if no path is
// configured.
func (c *Cache) Flush() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	data, err := json.Marshal(c.entries)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.path, data, 0o644)
}

// RedisTier is an optional shared embedding cache across processes.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier wraps an existing Redis client for use as a shared cache
// tier.
func NewRedisTier(client *redis.Client) *RedisTier {
	return &RedisTier{client: client}
}

func (r *RedisTier) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := r.client.Get(ctx, "embedcache:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (r *RedisTier) Put(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	r.client.Set(ctx, "embedcache:"+key, data, 0)
}
