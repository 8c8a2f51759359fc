// Package store provides the three parallel stores backing the search
// engine: the flat vector index, the metadata record store, and the path
// identity index. The engine keeps their live cardinalities equal at all
// times; snapshots of all three are persisted together as one bundle.
package store

import (
	"errors"
	"fmt"
	"time"
)

// Record is a single indexed dataset file. The ID is assigned once and
// never changes; re-indexing a changed file replaces checksum, attributes,
// and text in place.
type Record struct {
	ID         uint64            // Monotonically increasing, immutable
	Path       string            // Normalized absolute source path
	Checksum   string            // SHA256 of file content
	Size       int64             // File size in bytes
	Attributes map[string]string // Extracted metadata, keys not fixed
	Text       string            // Raw text the embedding was produced from
	IndexedAt  time.Time         // When (re-)indexed
}

// VectorResult is a single similarity search hit.
type VectorResult struct {
	ID    uint64  // Record ID
	Score float32 // Inner product against the unit query vector
}

// DedupPolicy selects the identity key used to decide whether an incoming
// file is new, unchanged, or an update. It is fixed at configuration time;
// snapshots record it and refuse to load under a different policy.
type DedupPolicy string

const (
	// DedupByPath treats the same path as the same identity; content
	// changes at that path trigger an in-place update.
	DedupByPath DedupPolicy = "path"

	// DedupByChecksum treats identical content at any path as the same
	// identity.
	DedupByChecksum DedupPolicy = "checksum"
)

// ParseDedupPolicy validates a policy string from configuration.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(s) {
	case DedupByPath, DedupByChecksum:
		return DedupPolicy(s), nil
	case "":
		return DedupByPath, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q (use 'path' or 'checksum')", s)
	}
}

// ErrNotFound indicates a record ID with no stored metadata.
var ErrNotFound = errors.New("record not found")

// ErrDimensionMismatch indicates a vector whose length disagrees with the
// index's established dimension. The operation fails and the index is left
// unchanged.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
