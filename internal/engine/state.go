package engine

import (
	stderrors "errors"

	"github.com/fairdata/fairsearch/internal/persist"
	"github.com/fairdata/fairsearch/internal/store"
)

// Stats is a point-in-time snapshot of index health. Records, Vectors,
// and PathKeys are always equal while the stores are consistent.
type Stats struct {
	Records    int               // Metadata records
	Vectors    int               // Live vectors
	PathKeys   int               // Identity keys
	Tombstones int               // Removed rows awaiting compaction
	Dimension  int               // 0 until the first vector is added
	Policy     store.DedupPolicy // Identity policy
	Model      string            // Embedding model name
	DiskSize   int64             // Bytes of the saved snapshot, 0 if none
	IndexDir   string            // Snapshot directory
}

// Stats reports current index statistics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		Records:    e.meta.Len(),
		Vectors:    e.vectors.Count(),
		PathKeys:   e.paths.Len(),
		Tombstones: e.vectors.Tombstones(),
		Dimension:  e.vectors.Dimension(),
		Policy:     e.policy,
		Model:      e.embedder.ModelName(),
		DiskSize:   e.persist.DiskSize(),
		IndexDir:   e.persist.Dir(),
	}
}

// Compact reclaims tombstoned vector rows and returns how many were
// dropped.
func (e *Engine) Compact() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vectors.Compact()
}

// Save writes an atomic snapshot of all three stores. Mutations are
// blocked for the duration so the blobs stay mutually consistent.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.persist.Save(&persist.Bundle{
		Vectors:  e.vectors,
		Metadata: e.meta,
		Paths:    e.paths,
	})
	if err != nil {
		return err
	}
	e.logger.Info("index saved", "dir", e.persist.Dir(), "records", e.meta.Len())
	return nil
}

// Load replaces the in-memory stores with the saved snapshot. Returns
// (false, nil) when no snapshot exists; the engine then stays empty.
// A corrupt or mismatched snapshot fails without touching the current
// in-memory state.
func (e *Engine) Load() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bundle, err := e.persist.Load(e.policy, e.embedder.Dimensions())
	if stderrors.Is(err, persist.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.vectors = bundle.Vectors
	e.meta = bundle.Metadata
	e.paths = bundle.Paths
	e.logger.Info("index loaded", "dir", e.persist.Dir(), "records", e.meta.Len())
	return true, nil
}

// Close releases the embedder. The index is not saved implicitly.
func (e *Engine) Close() error {
	return e.embedder.Close()
}
