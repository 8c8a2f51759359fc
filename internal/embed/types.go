// Package embed provides embedding producers for dataset metadata text:
// an Ollama-backed embedder for real models and a deterministic hash-based
// embedder that works offline. Both return unit-normalized vectors of a
// fixed dimension.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout is the per-request timeout against the embedding
	// service. In-memory index operations are never subject to it.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient embedding service failures.
	DefaultMaxRetries = 3

	// DefaultDimensions is the embedding dimension of the default
	// sentence-transformer style models (MiniLM family).
	DefaultDimensions = 384

	// StaticDimensions is the embedding dimension of the hash-based
	// static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text. Implementations are
// deterministic for identical input and return unit-normalized vectors.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
