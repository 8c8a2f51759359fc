package store

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
)

// FlatStore is an exact nearest-neighbor index over unit vectors using
// inner-product ranking (equivalent to cosine similarity on normalized
// vectors).
//
// The dense storage has no in-place delete: removal marks the internal
// position as a tombstone and Compact rebuilds the storage with only live
// vectors. Internal positions are never exposed; callers only ever see
// stable external record IDs.
type FlatStore struct {
	mu      sync.RWMutex
	dim     int         // Fixed after first successful Add
	rows    [][]float32 // Position-indexed vectors; nil rows are tombstones
	rowIDs  []uint64    // Position -> external ID (stale for tombstones)
	idToPos map[uint64]int
}

// flatSnapshot is the serialized form of a FlatStore. Only live vectors
// are written, so loading a snapshot is implicitly compacted.
type flatSnapshot struct {
	Dim     int
	IDs     []uint64
	Vectors [][]float32
}

// NewFlatStore creates an empty flat index. The dimension is established
// by the first successful Add.
func NewFlatStore() *FlatStore {
	return &FlatStore{
		idToPos: make(map[uint64]int),
	}
}

// Add inserts a vector under an external ID. The first successful add
// fixes the index dimension; later adds with a different length fail with
// ErrDimensionMismatch without mutating any state.
func (s *FlatStore) Add(id uint64, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDim(vec); err != nil {
		return err
	}
	if _, exists := s.idToPos[id]; exists {
		return fmt.Errorf("vector %d already present", id)
	}

	s.appendLocked(id, vec)
	return nil
}

// Update replaces the vector stored under id, preserving the external ID.
// The old internal position becomes a tombstone.
func (s *FlatStore) Update(id uint64, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDim(vec); err != nil {
		return err
	}
	pos, exists := s.idToPos[id]
	if !exists {
		return fmt.Errorf("vector %d not present", id)
	}

	s.rows[pos] = nil
	delete(s.idToPos, id)
	s.appendLocked(id, vec)
	return nil
}

// Remove tombstones the vector under id. Storage is not shrunk; the
// position is reclaimed by the next Compact. Removing an absent ID is a
// no-op.
func (s *FlatStore) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.idToPos[id]
	if !exists {
		return
	}
	s.rows[pos] = nil
	delete(s.idToPos, id)
}

// Search computes the inner product of query against every live vector and
// returns the top k by descending score. Ties are broken by ascending ID
// so results are deterministic.
func (s *FlatStore) Search(query []float32, k int) ([]VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	// The dimension stays fixed once set even if every row is later
	// tombstoned, so mismatched queries fail before the empty check.
	if s.dim != 0 && len(query) != s.dim {
		return nil, ErrDimensionMismatch{Expected: s.dim, Got: len(query)}
	}
	if s.dim == 0 || len(s.idToPos) == 0 {
		return nil, nil
	}

	q := normalize(query)

	hits := make([]VectorResult, 0, len(s.idToPos))
	for id, pos := range s.idToPos {
		hits = append(hits, VectorResult{ID: id, Score: dot(q, s.rows[pos])})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// VectorByID returns a copy of the stored vector for a live ID.
func (s *FlatStore) VectorByID(id uint64) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.idToPos[id]
	if !exists {
		return nil, false
	}
	out := make([]float32, s.dim)
	copy(out, s.rows[pos])
	return out, true
}

// Contains reports whether id is live in the index.
func (s *FlatStore) Contains(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.idToPos[id]
	return exists
}

// Count returns the number of live vectors.
func (s *FlatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.idToPos)
}

// Tombstones returns the number of dead positions awaiting compaction.
func (s *FlatStore) Tombstones() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows) - len(s.idToPos)
}

// Dimension returns the established vector dimension, or 0 before the
// first add.
func (s *FlatStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dim
}

// Compact rebuilds dense storage containing only live vectors. The new
// structure is built fully before it replaces the old one, so readers
// never observe partial state; external IDs are unaffected.
func (s *FlatStore) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := len(s.rows) - len(s.idToPos)
	if reclaimed == 0 {
		return 0
	}

	newRows := make([][]float32, 0, len(s.idToPos))
	newIDs := make([]uint64, 0, len(s.idToPos))
	newPos := make(map[uint64]int, len(s.idToPos))

	for pos, row := range s.rows {
		if row == nil {
			continue
		}
		id := s.rowIDs[pos]
		newPos[id] = len(newRows)
		newRows = append(newRows, row)
		newIDs = append(newIDs, id)
	}

	s.rows = newRows
	s.rowIDs = newIDs
	s.idToPos = newPos
	return reclaimed
}

// WriteSnapshot gob-encodes the live vectors to w. Tombstones are not
// written, so a restored store starts compacted.
func (s *FlatStore) WriteSnapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := flatSnapshot{
		Dim:     s.dim,
		IDs:     make([]uint64, 0, len(s.idToPos)),
		Vectors: make([][]float32, 0, len(s.idToPos)),
	}
	for pos, row := range s.rows {
		if row == nil {
			continue
		}
		snap.IDs = append(snap.IDs, s.rowIDs[pos])
		snap.Vectors = append(snap.Vectors, row)
	}

	return gob.NewEncoder(w).Encode(snap)
}

// ReadSnapshot replaces the store contents with a previously written
// snapshot. On any decode or consistency failure the store is left
// untouched.
func (s *FlatStore) ReadSnapshot(r io.Reader) error {
	var snap flatSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode vector snapshot: %w", err)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return fmt.Errorf("vector snapshot id/vector count mismatch: %d vs %d",
			len(snap.IDs), len(snap.Vectors))
	}
	idToPos := make(map[uint64]int, len(snap.IDs))
	for pos, vec := range snap.Vectors {
		if snap.Dim > 0 && len(vec) != snap.Dim {
			return ErrDimensionMismatch{Expected: snap.Dim, Got: len(vec)}
		}
		if _, dup := idToPos[snap.IDs[pos]]; dup {
			return fmt.Errorf("vector snapshot contains duplicate id %d", snap.IDs[pos])
		}
		idToPos[snap.IDs[pos]] = pos
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dim = snap.Dim
	s.rows = snap.Vectors
	s.rowIDs = snap.IDs
	s.idToPos = idToPos
	return nil
}

// checkDim validates the vector length against the established dimension.
// Callers hold the write lock. The dimension is only fixed by appendLocked
// after all other validation passes.
func (s *FlatStore) checkDim(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector")
	}
	if s.dim != 0 && len(vec) != s.dim {
		return ErrDimensionMismatch{Expected: s.dim, Got: len(vec)}
	}
	return nil
}

// appendLocked copies, normalizes, and appends a vector. Callers hold the
// write lock and have already validated the dimension.
func (s *FlatStore) appendLocked(id uint64, vec []float32) {
	if s.dim == 0 {
		s.dim = len(vec)
	}
	s.idToPos[id] = len(s.rows)
	s.rows = append(s.rows, normalize(vec))
	s.rowIDs = append(s.rowIDs, id)
}

// normalize returns a unit-length copy of v. Zero vectors are returned as
// a plain copy; they rank last under inner-product scoring.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sumSquares float64
	for _, val := range out {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
