// Package engine orchestrates extraction, embedding, the in-memory
// stores, and persistence behind a single search API.
package engine

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairdata/fairsearch/internal/embed"
	"github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/extract"
	"github.com/fairdata/fairsearch/internal/persist"
	"github.com/fairdata/fairsearch/internal/scanner"
	"github.com/fairdata/fairsearch/internal/store"
)

// Search defaults.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.0
)

// Engine is the top-level search engine. All public methods are safe
// for concurrent use; a coarse RWMutex guards the three stores so every
// mutation is observed atomically across them.
type Engine struct {
	mu      sync.RWMutex
	vectors *store.FlatStore
	meta    *store.MetadataStore
	paths   *store.PathIndex

	persist   *persist.Manager
	embedder  embed.Embedder
	extractor extract.Extractor
	scan      *scanner.Scanner
	logger    *slog.Logger

	policy    store.DedupPolicy
	topK      int
	threshold float32
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor overrides the default dataset extractor.
func WithExtractor(x extract.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithScanner overrides the directory scanner.
func WithScanner(s *scanner.Scanner) Option {
	return func(e *Engine) { e.scan = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDefaultTopK sets the result count used when a caller passes 0.
func WithDefaultTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithThreshold sets the minimum score a hit must reach.
func WithThreshold(t float32) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithWorkers sets the directory indexing parallelism.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an engine with empty stores. Call Load to restore a
// previously saved snapshot.
func New(embedder embed.Embedder, pm *persist.Manager, policy store.DedupPolicy, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, errors.ValidationError("an embedder is required", nil)
	}
	if pm == nil {
		return nil, errors.ValidationError("a persistence manager is required", nil)
	}

	e := &Engine{
		vectors:   store.NewFlatStore(),
		meta:      store.NewMetadataStore(),
		paths:     store.NewPathIndex(policy),
		persist:   pm,
		embedder:  embedder,
		extractor: extract.NewDatasetExtractor(0),
		scan:      scanner.New(scanner.Options{Recursive: true}),
		logger:    slog.Default(),
		policy:    policy,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// FileStatus reports what IndexFile did with a file.
type FileStatus string

const (
	StatusIndexed FileStatus = "indexed" // New record created
	StatusUpdated FileStatus = "updated" // Existing record refreshed in place
	StatusSkipped FileStatus = "skipped" // Identity unchanged, nothing to do
)

// IndexOutcome is the result of indexing one file.
type IndexOutcome struct {
	Status FileStatus
	ID     uint64
	Path   string
}

// IndexFile extracts, embeds, and stores one dataset file. Unchanged
// files are skipped without re-embedding. On any failure nothing is
// mutated.
func (e *Engine) IndexFile(ctx context.Context, path string) (*IndexOutcome, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}

	res, err := e.extractor.Extract(ctx, abs)
	if err != nil {
		return nil, err
	}

	key := e.paths.IdentityKey(res.Path, res.Checksum)

	// Fast path: identity already indexed and unchanged. A matching
	// stored checksum means the same identity under either policy, so
	// no embedding and no mutation happen. Under path dedup the key is
	// the path itself; under checksum dedup the same content at any
	// path shares one record.
	e.mu.RLock()
	if id, ok := e.paths.Resolve(key); ok {
		if rec, err := e.meta.Get(id); err == nil && rec.Checksum == res.Checksum {
			e.mu.RUnlock()
			return &IndexOutcome{Status: StatusSkipped, ID: id, Path: res.Path}, nil
		}
	}
	e.mu.RUnlock()

	// Embedding happens outside the lock so concurrent searches and
	// other indexing runs are not serialized behind the model.
	vec, err := e.embedder.Embed(ctx, res.Text)
	if err != nil {
		return nil, err
	}

	return e.apply(key, res, vec)
}

// apply commits one extraction under the write lock. The identity is
// re-resolved here so concurrent IndexFile calls stay linearizable.
func (e *Engine) apply(key string, res *extract.Result, vec []float32) (*IndexOutcome, error) {
	rec := &store.Record{
		Path:       res.Path,
		Checksum:   res.Checksum,
		Size:       res.Size,
		Attributes: res.Attributes,
		Text:       res.Text,
		IndexedAt:  time.Now().UTC(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.paths.Resolve(key); ok {
		if existing, err := e.meta.Get(id); err == nil && existing.Checksum == res.Checksum {
			return &IndexOutcome{Status: StatusSkipped, ID: id, Path: res.Path}, nil
		}
		if err := e.vectors.Update(id, vec); err != nil {
			return nil, mapDimensionError(err)
		}
		rec.ID = id
		e.meta.Put(id, rec)
		e.paths.Upsert(key, id)
		e.logger.Debug("record updated", "id", id, "path", res.Path)
		return &IndexOutcome{Status: StatusUpdated, ID: id, Path: res.Path}, nil
	}

	// Vector insertion runs first: a dimension rejection must leave the
	// ID counter and both stores untouched.
	id := e.meta.NextID()
	if err := e.vectors.Add(id, vec); err != nil {
		return nil, mapDimensionError(err)
	}
	rec.ID = id
	e.meta.Put(id, rec)
	e.paths.Upsert(key, id)
	e.logger.Debug("record indexed", "id", id, "path", res.Path)
	return &IndexOutcome{Status: StatusIndexed, ID: id, Path: res.Path}, nil
}

// FileError records one file that failed during a directory run.
type FileError struct {
	Path string
	Err  error
}

// BatchSummary aggregates a directory indexing run.
type BatchSummary struct {
	Indexed  int
	Updated  int
	Skipped  int
	Failed   int
	Failures []FileError
	Elapsed  time.Duration
}

// Total returns the number of files the run attempted.
func (b *BatchSummary) Total() int {
	return b.Indexed + b.Updated + b.Skipped + b.Failed
}

// IndexDirectory scans dir and indexes every matching file. Individual
// file failures are recorded in the summary and never abort the run;
// only context cancellation stops it early.
func (e *Engine) IndexDirectory(ctx context.Context, dir string) (*BatchSummary, error) {
	start := time.Now()

	files, err := e.scan.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{}
	var sumMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcome, err := e.IndexFile(gctx, path)

			sumMu.Lock()
			defer sumMu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, FileError{Path: path, Err: err})
				e.logger.Warn("file indexing failed", "path", path, "error", err)
				return nil
			}
			switch outcome.Status {
			case StatusIndexed:
				summary.Indexed++
			case StatusUpdated:
				summary.Updated++
			case StatusSkipped:
				summary.Skipped++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	e.logger.Info("directory indexed",
		"dir", dir,
		"indexed", summary.Indexed,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// RemoveFile drops the record for path. Removing an unindexed path is
// an error.
func (e *Engine) RemoveFile(path string) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.findByPathLocked(abs)
	if err != nil {
		return err
	}

	e.vectors.Remove(rec.ID)
	e.meta.Delete(rec.ID)
	e.paths.Remove(e.paths.IdentityKey(rec.Path, rec.Checksum))
	e.logger.Debug("record removed", "id", rec.ID, "path", abs)
	return nil
}

// mapDimensionError converts the store-level mismatch into the coded
// fatal error callers act on.
func mapDimensionError(err error) error {
	var dim store.ErrDimensionMismatch
	if stderrors.As(err, &dim) {
		return errors.DimensionError(dim.Expected, dim.Got)
	}
	return errors.New(errors.ErrCodeIndexFailed, "vector store rejected the record", err)
}

// findByPathLocked locates a record by absolute path. Under checksum
// dedup the path index is keyed by content, so this falls back to a
// metadata scan.
func (e *Engine) findByPathLocked(abs string) (*store.Record, error) {
	if e.policy == store.DedupByPath {
		if id, ok := e.paths.Resolve(abs); ok {
			return e.meta.Get(id)
		}
		return nil, errors.New(errors.ErrCodeRecordAbsent, "path not indexed: "+abs, nil)
	}
	for _, rec := range e.meta.All() {
		if rec.Path == abs {
			return rec, nil
		}
	}
	return nil, errors.New(errors.ErrCodeRecordAbsent, "path not indexed: "+abs, nil)
}

// absPath normalizes a user-supplied path to its absolute form.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidPath, "cannot resolve path: "+path, err)
	}
	return abs, nil
}
