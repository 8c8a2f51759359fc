package store

import (
	"encoding/gob"
	"fmt"
	"io"
	"iter"
	"sort"
	"sync"
)

// MetadataStore maps record IDs to their structured metadata and raw
// embedding text. It is the authoritative content store and owns the
// monotonically increasing ID counter.
//
// Persistence is whole-store: the entire mapping is serialized in one
// pass. That rewrites everything on every save, which is acceptable under
// the batch-oriented (not per-write) persistence model.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[uint64]*Record
	nextID  uint64
}

// metadataSnapshot is the serialized form of a MetadataStore.
type metadataSnapshot struct {
	NextID  uint64
	Records map[uint64]*Record
}

// NewMetadataStore creates an empty metadata store. IDs start at 1 so the
// zero value never identifies a record.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		records: make(map[uint64]*Record),
		nextID:  1,
	}
}

// NextID returns the ID the next new record will receive, without
// allocating it. The counter only advances when Put stores a record, so a
// rejected insert burns nothing.
func (s *MetadataStore) NextID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextID
}

// Put stores or replaces the record under id and advances the ID counter
// past it.
func (s *MetadataStore) Put(id uint64, rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = id
	s.records[id] = rec
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

// Get returns the record stored under id, or ErrNotFound.
func (s *MetadataStore) Get(id uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("metadata %d: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Delete removes the record under id. Deleting an absent ID is a no-op.
func (s *MetadataStore) Delete(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
}

// Len returns the number of stored records.
func (s *MetadataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// All iterates records in ascending ID order. The iteration runs over a
// point-in-time snapshot of IDs, so it is finite and restartable even if
// the store is mutated mid-iteration.
func (s *MetadataStore) All() iter.Seq2[uint64, *Record] {
	return func(yield func(uint64, *Record) bool) {
		s.mu.RLock()
		ids := make([]uint64, 0, len(s.records))
		for id := range s.records {
			ids = append(ids, id)
		}
		s.mu.RUnlock()

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			s.mu.RLock()
			rec, ok := s.records[id]
			s.mu.RUnlock()
			if !ok {
				continue
			}
			if !yield(id, rec) {
				return
			}
		}
	}
}

// WriteSnapshot gob-encodes the whole store to w.
func (s *MetadataStore) WriteSnapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return gob.NewEncoder(w).Encode(metadataSnapshot{
		NextID:  s.nextID,
		Records: s.records,
	})
}

// ReadSnapshot replaces the store contents with a previously written
// snapshot. On decode failure the store is left untouched.
func (s *MetadataStore) ReadSnapshot(r io.Reader) error {
	var snap metadataSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode metadata snapshot: %w", err)
	}
	if snap.Records == nil {
		snap.Records = make(map[uint64]*Record)
	}
	for id := range snap.Records {
		if id >= snap.NextID {
			return fmt.Errorf("metadata snapshot id %d not below next id %d", id, snap.NextID)
		}
	}
	if snap.NextID == 0 {
		snap.NextID = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = snap.Records
	s.nextID = snap.NextID
	return nil
}
