package store

import (
	"encoding/gob"
	"fmt"
	"io"
	"sync"
)

// PathIndex is the deduplication authority: it maps identity keys to
// record IDs. At most one active record exists per identity key.
//
// The identity key derivation is controlled by the DedupPolicy fixed at
// construction; a snapshot written under one policy refuses to load under
// another, since switching policies silently would invalidate the dedup
// semantics of everything already indexed.
type PathIndex struct {
	mu     sync.RWMutex
	policy DedupPolicy
	keys   map[string]uint64
}

// pathSnapshot is the serialized form of a PathIndex.
type pathSnapshot struct {
	Policy DedupPolicy
	Keys   map[string]uint64
}

// NewPathIndex creates an empty path index under the given policy.
func NewPathIndex(policy DedupPolicy) *PathIndex {
	return &PathIndex{
		policy: policy,
		keys:   make(map[string]uint64),
	}
}

// Policy returns the configured dedup policy.
func (s *PathIndex) Policy() DedupPolicy {
	return s.policy
}

// IdentityKey derives the dedup key for a file. The path must already be
// normalized and absolute; the checksum is the file's content hash.
func (s *PathIndex) IdentityKey(path, checksum string) string {
	if s.policy == DedupByChecksum {
		return checksum
	}
	return path
}

// Resolve returns the record ID registered under key, if any.
func (s *PathIndex) Resolve(key string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[key]
	return id, ok
}

// Upsert registers or replaces the record ID under key.
func (s *PathIndex) Upsert(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = id
}

// Remove drops the key. Removing an absent key is a no-op.
func (s *PathIndex) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
}

// Len returns the number of active identity keys.
func (s *PathIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.keys)
}

// WriteSnapshot gob-encodes the identity mapping and its policy to w.
func (s *PathIndex) WriteSnapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return gob.NewEncoder(w).Encode(pathSnapshot{
		Policy: s.policy,
		Keys:   s.keys,
	})
}

// ReadSnapshot replaces the index contents with a previously written
// snapshot. Loading fails if the snapshot was written under a different
// dedup policy; the index is left untouched on any failure.
func (s *PathIndex) ReadSnapshot(r io.Reader) error {
	var snap pathSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode path snapshot: %w", err)
	}
	if snap.Policy != s.policy {
		return fmt.Errorf("path snapshot written under policy %q, configured policy is %q",
			snap.Policy, s.policy)
	}
	if snap.Keys == nil {
		snap.Keys = make(map[string]uint64)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = snap.Keys
	return nil
}
