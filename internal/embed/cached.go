package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default LRU capacity for embedding reuse.
const DefaultCacheSize = 10000

// PersistentCache stores embeddings across process restarts. Implementations
// must be safe for concurrent use.
type PersistentCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vector []float32) error
	Close() error
}

// CachedEmbedder wraps an Embedder with an in-memory LRU cache and an
// optional persistent second tier. Re-indexing unchanged text never hits
// the underlying model twice.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
	disk  PersistentCache

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU of the given capacity.
// disk may be nil for memory-only caching.
func NewCachedEmbedder(inner Embedder, size int, disk PersistentCache) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache, disk: disk}, nil
}

// cacheKey derives a stable key from the text and model so that switching
// models never resurfaces stale vectors.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(c.inner.ModelName()))
	return hex.EncodeToString(h.Sum(nil))
}

// Embed returns a cached vector when available, otherwise delegates.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return vec, nil
	}

	if c.disk != nil {
		if vec, ok, err := c.disk.Get(ctx, key); err == nil && ok {
			c.hits.Add(1)
			c.cache.Add(key, vec)
			return vec, nil
		}
	}

	c.misses.Add(1)
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch resolves cached entries first and embeds only the misses,
// preserving input order in the result.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			c.hits.Add(1)
			results[i] = vec
			continue
		}
		if c.disk != nil {
			if vec, ok, err := c.disk.Get(ctx, key); err == nil && ok {
				c.hits.Add(1)
				c.cache.Add(key, vec)
				results[i] = vec
				continue
			}
		}
		c.misses.Add(1)
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(missing))
	}

	for j, vec := range embedded {
		i := missingIdx[j]
		results[i] = vec
		c.store(ctx, c.cacheKey(texts[i]), vec)
	}

	return results, nil
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	c.cache.Add(key, vec)
	if c.disk != nil {
		// Persistence failures degrade to memory-only caching.
		_ = c.disk.Put(ctx, key, vec)
	}
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the wrapped embedder's model identifier.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Available reports whether the wrapped embedder is reachable.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Stats reports cache hit and miss counts since construction.
func (c *CachedEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of in-memory cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

// Close closes the persistent tier first, then the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	var firstErr error
	if c.disk != nil {
		if err := c.disk.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.inner.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
