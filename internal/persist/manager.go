// Package persist implements atomic snapshot persistence for the three
// index stores. A snapshot is three named blobs in one directory; all
// three are written to temporary files and renamed into place only after
// every write succeeds, so a partially written snapshot is never
// observable as loaded.
package persist

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/store"
)

// Snapshot blob names within the index directory.
const (
	VectorsFile  = "vectors.gob"
	MetadataFile = "metadata.gob"
	PathsFile    = "paths.gob"

	lockFile = ".fairsearch.lock"
)

// ErrNoSnapshot indicates a snapshot directory with no snapshot in it.
// Callers start with an empty index in that case; it is not a corruption.
var ErrNoSnapshot = stderrors.New("no snapshot found")

// Bundle is the consistent unit of persistence: all three stores together.
type Bundle struct {
	Vectors  *store.FlatStore
	Metadata *store.MetadataStore
	Paths    *store.PathIndex
}

// Manager serializes and deserializes snapshot bundles for one directory.
// It holds no index state of its own. The directory is guarded by a file
// lock so two processes cannot interleave snapshot writes.
type Manager struct {
	dir  string
	lock *flock.Flock
}

// NewManager creates a manager for the given snapshot directory, creating
// the directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.PersistenceError("create snapshot directory", err)
	}
	return &Manager{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Exists reports whether a complete snapshot is present.
func (m *Manager) Exists() bool {
	for _, name := range []string{VectorsFile, MetadataFile, PathsFile} {
		if _, err := os.Stat(filepath.Join(m.dir, name)); err != nil {
			return false
		}
	}
	return true
}

// DiskSize returns the total size in bytes of the snapshot blobs.
func (m *Manager) DiskSize() int64 {
	var total int64
	for _, name := range []string{VectorsFile, MetadataFile, PathsFile} {
		if info, err := os.Stat(filepath.Join(m.dir, name)); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Save writes the bundle as three blobs. Every blob is written to a
// temporary file first; renames happen only after all three writes
// succeeded. On failure the previous snapshot, if any, is left intact.
func (m *Manager) Save(b *Bundle) error {
	locked, err := m.lock.TryLock()
	if err != nil {
		return errors.PersistenceError("acquire snapshot lock", err)
	}
	if !locked {
		return errors.New(errors.ErrCodeIndexLocked,
			"snapshot directory is locked by another process", nil)
	}
	defer func() { _ = m.lock.Unlock() }()

	type blob struct {
		name  string
		write func(f *os.File) error
	}
	blobs := []blob{
		{VectorsFile, func(f *os.File) error { return b.Vectors.WriteSnapshot(f) }},
		{MetadataFile, func(f *os.File) error { return b.Metadata.WriteSnapshot(f) }},
		{PathsFile, func(f *os.File) error { return b.Paths.WriteSnapshot(f) }},
	}

	tmpPaths := make([]string, 0, len(blobs))
	cleanup := func() {
		for _, p := range tmpPaths {
			_ = os.Remove(p)
		}
	}

	for _, bl := range blobs {
		tmp := filepath.Join(m.dir, bl.name+".tmp")
		if err := writeBlob(tmp, bl.write); err != nil {
			cleanup()
			return errors.PersistenceError(fmt.Sprintf("write %s", bl.name), err)
		}
		tmpPaths = append(tmpPaths, tmp)
	}

	// All writes succeeded; swap the blobs into place.
	for i, bl := range blobs {
		if err := os.Rename(tmpPaths[i], filepath.Join(m.dir, bl.name)); err != nil {
			cleanup()
			return errors.PersistenceError(fmt.Sprintf("commit %s", bl.name), err)
		}
	}

	return nil
}

// Load reads a snapshot into fresh stores and verifies its consistency:
// all three cardinalities must be equal, the recorded dedup policy must
// match the configured one, and if expectDim is nonzero the stored vector
// dimension must match it. Any failed check aborts the load with an
// IndexCorruptionError; no partial or empty bundle is ever returned in
// place of a broken one.
func (m *Manager) Load(policy store.DedupPolicy, expectDim int) (*Bundle, error) {
	locked, err := m.lock.TryLock()
	if err != nil {
		return nil, errors.PersistenceError("acquire snapshot lock", err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeIndexLocked,
			"snapshot directory is locked by another process", nil)
	}
	defer func() { _ = m.lock.Unlock() }()

	present := 0
	for _, name := range []string{VectorsFile, MetadataFile, PathsFile} {
		if _, err := os.Stat(filepath.Join(m.dir, name)); err == nil {
			present++
		}
	}
	if present == 0 {
		return nil, ErrNoSnapshot
	}
	if present < 3 {
		return nil, errors.CorruptIndexError(
			fmt.Sprintf("incomplete snapshot: %d of 3 blobs present in %s", present, m.dir), nil)
	}

	b := &Bundle{
		Vectors:  store.NewFlatStore(),
		Metadata: store.NewMetadataStore(),
		Paths:    store.NewPathIndex(policy),
	}

	if err := readBlob(filepath.Join(m.dir, VectorsFile), b.Vectors.ReadSnapshot); err != nil {
		return nil, errors.CorruptIndexError("load vector blob", err)
	}
	if err := readBlob(filepath.Join(m.dir, MetadataFile), b.Metadata.ReadSnapshot); err != nil {
		return nil, errors.CorruptIndexError("load metadata blob", err)
	}
	if err := readBlob(filepath.Join(m.dir, PathsFile), b.Paths.ReadSnapshot); err != nil {
		return nil, errors.CorruptIndexError("load path blob", err)
	}

	if v, md, p := b.Vectors.Count(), b.Metadata.Len(), b.Paths.Len(); v != md || v != p {
		return nil, errors.CorruptIndexError(
			fmt.Sprintf("snapshot cardinality mismatch: %d vectors, %d records, %d identity keys",
				v, md, p), nil)
	}
	if expectDim > 0 && b.Vectors.Dimension() > 0 && b.Vectors.Dimension() != expectDim {
		return nil, errors.CorruptIndexError(
			fmt.Sprintf("snapshot dimension %d does not match configured embedding dimension %d",
				b.Vectors.Dimension(), expectDim), nil)
	}

	return b, nil
}

// writeBlob writes one blob to path, syncing before close so the rename
// that follows commits durable bytes.
func writeBlob(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// readBlob opens one blob and decodes it with the store's reader.
func readBlob(path string, read func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return read(f)
}
