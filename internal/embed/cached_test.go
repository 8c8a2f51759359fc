package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records how many texts reached the underlying model.
type countingEmbedder struct {
	inner Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int64(len(texts)))
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int                    { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string                  { return c.inner.ModelName() }
func (c *countingEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }
func (c *countingEmbedder) Close() error                       { return c.inner.Close() }

func TestCachedEmbedder_HitAvoidsRecompute(t *testing.T) {
	// Given a cached embedder over a counting inner embedder
	counting := &countingEmbedder{inner: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(counting, 16, nil)
	require.NoError(t, err)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	// When embedding the same text twice
	a, err := cached.Embed(ctx, "soil moisture profile")
	require.NoError(t, err)
	b, err := cached.Embed(ctx, "soil moisture profile")
	require.NoError(t, err)

	// Then the model ran once and the results match
	assert.Equal(t, a, b)
	assert.Equal(t, int64(1), counting.calls.Load())

	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachedEmbedder_BatchEmbedsOnlyMisses(t *testing.T) {
	// Given one text already cached
	counting := &countingEmbedder{inner: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(counting, 16, nil)
	require.NoError(t, err)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	warm, err := cached.Embed(ctx, "cached text")
	require.NoError(t, err)
	counting.calls.Store(0)

	// When embedding a batch mixing cached and new texts
	vecs, err := cached.EmbedBatch(ctx, []string{"new one", "cached text", "new two"})
	require.NoError(t, err)

	// Then only the misses reached the model and order is preserved
	require.Len(t, vecs, 3)
	assert.Equal(t, warm, vecs[1])
	assert.Equal(t, int64(2), counting.calls.Load())
}

func TestCachedEmbedder_PersistentTierSurvivesEviction(t *testing.T) {
	// Given a tiny LRU backed by a SQLite tier
	disk, err := NewSQLiteCache(t.TempDir()+"/cache.db", "static-hash-256")
	require.NoError(t, err)
	counting := &countingEmbedder{inner: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(counting, 1, disk)
	require.NoError(t, err)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	// When the first entry is evicted from memory by a second
	first, err := cached.Embed(ctx, "first text")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "second text")
	require.NoError(t, err)
	counting.calls.Store(0)

	again, err := cached.Embed(ctx, "first text")
	require.NoError(t, err)

	// Then the persistent tier serves it without recomputing
	assert.Equal(t, first, again)
	assert.Equal(t, int64(0), counting.calls.Load())
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	// Given an open cache database
	cache, err := NewSQLiteCache(t.TempDir()+"/cache.db", "test-model")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	// When storing and reloading a vector
	vec := []float32{0.25, -0.5, 1.0}
	require.NoError(t, cache.Put(ctx, "k1", vec))

	got, ok, err := cache.Get(ctx, "k1")
	require.NoError(t, err)

	// Then the stored vector comes back exactly
	assert.True(t, ok)
	assert.Equal(t, vec, got)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteCache_MissingKey(t *testing.T) {
	// Given an empty cache database
	cache, err := NewSQLiteCache(t.TempDir()+"/cache.db", "test-model")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	// When looking up an unknown key
	_, ok, err := cache.Get(context.Background(), "missing")

	// Then the miss is reported without error
	require.NoError(t, err)
	assert.False(t, ok)
}
