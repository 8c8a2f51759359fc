package engine

import (
	"context"
	"strings"

	"github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/store"
)

// SearchResult pairs a record with its similarity score.
type SearchResult struct {
	Record *store.Record
	Score  float32
}

// Search embeds the query and returns the topK most similar records,
// best first, dropping hits below the threshold. topK <= 0 uses the
// engine default; threshold < 0 uses the engine default.
func (e *Engine) Search(ctx context.Context, query string, topK int, threshold float32) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	if topK <= 0 {
		topK = e.topK
	}
	if threshold < 0 {
		threshold = e.threshold
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searchLocked(vec, topK, threshold, 0)
}

// FindSimilarByID returns records similar to an already indexed record,
// ranked by its stored vector and excluding the record itself.
func (e *Engine) FindSimilarByID(id uint64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = e.topK
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	vec, ok := e.vectors.VectorByID(id)
	if !ok {
		return nil, errors.NotFoundError(id)
	}

	// Over-fetch by one because the record matches itself perfectly.
	results, err := e.searchLocked(vec, topK+1, e.threshold, id)
	if err != nil {
		return nil, err
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// FindSimilarByPath resolves path to its record and delegates to the
// stored-vector similarity search.
func (e *Engine) FindSimilarByPath(path string, topK int) ([]SearchResult, error) {
	e.mu.RLock()
	rec, err := e.findByPath(path)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return e.FindSimilarByID(rec.ID, topK)
}

// RecordByPath returns the stored record for an absolute or relative path.
func (e *Engine) RecordByPath(path string) (*store.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.findByPath(path)
}

// RecordByID returns the stored record for an ID.
func (e *Engine) RecordByID(id uint64) (*store.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.meta.Get(id)
	if err != nil {
		return nil, errors.NotFoundError(id)
	}
	return rec, nil
}

// searchLocked ranks against the vector store and joins metadata.
// Caller holds at least the read lock. exclude drops one ID from the
// results; 0 excludes nothing since IDs start at 1.
func (e *Engine) searchLocked(vec []float32, topK int, threshold float32, exclude uint64) ([]SearchResult, error) {
	hits, err := e.vectors.Search(vec, topK)
	if err != nil {
		return nil, mapDimensionError(err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.ID == exclude || hit.Score < threshold {
			continue
		}
		rec, err := e.meta.Get(hit.ID)
		if err != nil {
			// A vector without metadata means the stores diverged.
			return nil, errors.CorruptIndexError(
				"search hit has no metadata record", err)
		}
		results = append(results, SearchResult{Record: rec, Score: hit.Score})
	}
	return results, nil
}

func (e *Engine) findByPath(path string) (*store.Record, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	return e.findByPathLocked(abs)
}
