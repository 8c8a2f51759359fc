package embed

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache is a PersistentCache backed by a local SQLite database.
// It survives restarts so re-indexing a large tree only embeds new text.
type SQLiteCache struct {
	db    *sql.DB
	model string
}

var _ PersistentCache = (*SQLiteCache)(nil)

// NewSQLiteCache opens (creating if needed) the cache database at path.
// Entries are scoped to model so a model switch starts cold.
func NewSQLiteCache(path, model string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %s: %w", path, err)
	}

	// Single writer keeps modernc's file locking simple.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS embeddings (
			key        TEXT NOT NULL,
			model      TEXT NOT NULL,
			dims       INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (key, model)
		)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize embedding cache schema: %w", err)
	}

	return &SQLiteCache{db: db, model: model}, nil
}

// Get looks up a cached vector by key.
func (s *SQLiteCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var dims int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT dims, vector FROM embeddings WHERE key = ? AND model = ?`,
		key, s.model).Scan(&dims, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding cache: %w", err)
	}

	vec, err := decodeVector(blob, dims)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores or replaces a cached vector.
func (s *SQLiteCache) Put(ctx context.Context, key string, vector []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, dims, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, s.model, len(vector), encodeVector(vector), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	return nil
}

// Len returns the number of cached vectors for the current model.
func (s *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE model = ?`, s.model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count embedding cache: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// encodeVector packs float32 components as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 blob.
func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d", len(blob), 4*dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
