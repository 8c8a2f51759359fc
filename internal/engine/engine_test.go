package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdata/fairsearch/internal/embed"
	fserrors "github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/extract"
	"github.com/fairdata/fairsearch/internal/persist"
	"github.com/fairdata/fairsearch/internal/store"
)

// textExtractor serves canned text per path so tests control exactly
// what gets embedded.
type textExtractor struct {
	texts map[string]string
}

func (x *textExtractor) Extract(_ context.Context, path string) (*extract.Result, error) {
	text, ok := x.texts[filepath.Base(path)]
	if !ok {
		return nil, fserrors.ExtractionError(path, fmt.Errorf("no canned text"))
	}
	sum := sha256.Sum256([]byte(text))
	return &extract.Result{
		Path:       path,
		Size:       int64(len(text)),
		Checksum:   hex.EncodeToString(sum[:]),
		Attributes: map[string]string{},
		Text:       text,
	}, nil
}

// fakeEmbedder emits a deterministic one-hot unit vector whose
// dimension can be switched mid-test.
type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	vec := make([]float32, f.dim)
	vec[int(h.Sum32())%f.dim] = 1.0
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return f.dim }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	pm, err := persist.NewManager(t.TempDir())
	require.NoError(t, err)
	e, err := New(embed.NewStaticEmbedder(), pm, store.DedupByPath, opts...)
	require.NoError(t, err)
	return e
}

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSearch_RanksRelatedTextFirst(t *testing.T) {
	// Given three indexed records with known descriptions
	texts := map[string]string{
		"ocean.nc":   "ocean temperature dataset",
		"wind.nc":    "wind speed measurements",
		"biology.nc": "unrelated biology notes",
	}
	e := newTestEngine(t, WithExtractor(&textExtractor{texts: texts}))
	ctx := context.Background()
	for name := range texts {
		_, err := e.IndexFile(ctx, "/data/"+name)
		require.NoError(t, err)
	}

	// When searching for sea temperature
	results, err := e.Search(ctx, "sea temperature", 1, 0)
	require.NoError(t, err)

	// Then the ocean temperature record ranks first
	require.Len(t, results, 1)
	assert.Equal(t, "ocean temperature dataset", results[0].Record.Text)
}

func TestIndexFile_UnchangedFileIsSkipped(t *testing.T) {
	// Given an indexed file
	dir := t.TempDir()
	path := writeDataset(t, dir, "a.nc", "stable content")
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.IndexFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, StatusIndexed, first.Status)

	// When re-indexing it unchanged
	second, err := e.IndexFile(ctx, path)
	require.NoError(t, err)

	// Then nothing changes
	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, e.Stats().Vectors)
}

func TestIndexFile_ChecksumPolicySharedContentSkipped(t *testing.T) {
	// Given an engine deduplicating by checksum and two paths with
	// identical content
	dir := t.TempDir()
	pathA := writeDataset(t, dir, "a.nc", "identical measurements")
	pathB := writeDataset(t, dir, "b.nc", "identical measurements")

	pm, err := persist.NewManager(t.TempDir())
	require.NoError(t, err)
	e, err := New(embed.NewStaticEmbedder(), pm, store.DedupByChecksum)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.IndexFile(ctx, pathA)
	require.NoError(t, err)
	require.Equal(t, StatusIndexed, first.Status)

	// When indexing the second path
	second, err := e.IndexFile(ctx, pathB)
	require.NoError(t, err)

	// Then the shared content is recognized and nothing is mutated
	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, first.ID, second.ID)

	stats := e.Stats()
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 1, stats.Vectors)
	assert.Equal(t, 0, stats.Tombstones)
}

func TestIndexFile_ModifiedFileUpdatesInPlace(t *testing.T) {
	// Given an indexed file whose content then changes
	dir := t.TempDir()
	path := writeDataset(t, dir, "a.nc", "first revision of the data")
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.IndexFile(ctx, path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("second revision entirely"), 0o644))

	// When re-indexing
	second, err := e.IndexFile(ctx, path)
	require.NoError(t, err)

	// Then the record is refreshed under the same ID
	assert.Equal(t, StatusUpdated, second.Status)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, e.Stats().Vectors)

	rec, err := e.RecordByID(first.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Checksum)
}

func TestSearch_DimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	// Given an index built at dimension 384
	fake := &fakeEmbedder{dim: 384}
	texts := map[string]string{
		"a.nc": "alpha dataset",
		"b.nc": "beta dataset",
		"c.nc": "gamma dataset",
	}
	pm, err := persist.NewManager(t.TempDir())
	require.NoError(t, err)
	e, err := New(fake, pm, store.DedupByPath, WithExtractor(&textExtractor{texts: texts}))
	require.NoError(t, err)
	ctx := context.Background()
	for name := range texts {
		_, err := e.IndexFile(ctx, "/data/"+name)
		require.NoError(t, err)
	}
	before := e.Stats()

	// When the embedder starts producing 128-dimensional queries
	fake.dim = 128
	_, err = e.Search(ctx, "anything", 3, 0)

	// Then the search fails with a dimension error and nothing changed
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeDimensionMismatch, fserrors.GetCode(err))
	assert.Equal(t, before, e.Stats())
}

func TestIndexFile_DimensionMismatchMutatesNothing(t *testing.T) {
	// Given one record indexed at dimension 384
	fake := &fakeEmbedder{dim: 384}
	texts := map[string]string{"a.nc": "alpha", "b.nc": "beta"}
	pm, err := persist.NewManager(t.TempDir())
	require.NoError(t, err)
	e, err := New(fake, pm, store.DedupByPath, WithExtractor(&textExtractor{texts: texts}))
	require.NoError(t, err)
	ctx := context.Background()
	_, err = e.IndexFile(ctx, "/data/a.nc")
	require.NoError(t, err)
	before := e.Stats()

	// When a 128-dimensional vector arrives for a new file
	fake.dim = 128
	_, err = e.IndexFile(ctx, "/data/b.nc")

	// Then the add is rejected atomically
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeDimensionMismatch, fserrors.GetCode(err))
	assert.Equal(t, before, e.Stats())

	// And the rejected insert burned no record ID
	fake.dim = 384
	outcome, err := e.IndexFile(ctx, "/data/b.nc")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), outcome.ID)
}

func TestSaveLoad_RoundTripReproducesResults(t *testing.T) {
	// Given an indexed and saved engine
	dir := t.TempDir()
	snapDir := t.TempDir()
	for name, content := range map[string]string{
		"ocean_temperature.nc": "ocean observations",
		"wind_speed.grb2":      "wind observations",
		"salinity_profile.nc":  "salinity observations",
	} {
		writeDataset(t, dir, name, content)
	}

	pm, err := persist.NewManager(snapDir)
	require.NoError(t, err)
	e, err := New(embed.NewStaticEmbedder(), pm, store.DedupByPath)
	require.NoError(t, err)
	ctx := context.Background()

	summary, err := e.IndexDirectory(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Indexed)

	wantStats := e.Stats()
	wantResults, err := e.Search(ctx, "ocean", 5, 0)
	require.NoError(t, err)
	require.NoError(t, e.Save())

	// When a fresh engine loads the snapshot
	pm2, err := persist.NewManager(snapDir)
	require.NoError(t, err)
	e2, err := New(embed.NewStaticEmbedder(), pm2, store.DedupByPath)
	require.NoError(t, err)
	loaded, err := e2.Load()
	require.NoError(t, err)
	require.True(t, loaded)

	// Then stats and search results match exactly
	gotStats := e2.Stats()
	assert.Equal(t, wantStats.Records, gotStats.Records)
	assert.Equal(t, wantStats.Vectors, gotStats.Vectors)
	assert.Equal(t, wantStats.PathKeys, gotStats.PathKeys)
	assert.Equal(t, wantStats.Dimension, gotStats.Dimension)

	gotResults, err := e2.Search(ctx, "ocean", 5, 0)
	require.NoError(t, err)
	require.Len(t, gotResults, len(wantResults))
	for i := range wantResults {
		assert.Equal(t, wantResults[i].Record.ID, gotResults[i].Record.ID)
		assert.Equal(t, wantResults[i].Score, gotResults[i].Score)
	}
}

func TestLoad_NoSnapshotLeavesEngineEmpty(t *testing.T) {
	// Given an engine pointed at an empty snapshot directory
	e := newTestEngine(t)

	// When loading
	loaded, err := e.Load()

	// Then nothing is loaded and no error is raised
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 0, e.Stats().Records)
}

func TestFindSimilar_ExcludesSelf(t *testing.T) {
	// Given several indexed records
	texts := map[string]string{
		"a.nc": "ocean temperature monthly",
		"b.nc": "ocean temperature yearly",
		"c.nc": "atmospheric pressure grids",
	}
	e := newTestEngine(t, WithExtractor(&textExtractor{texts: texts}))
	ctx := context.Background()
	var firstID uint64
	for _, name := range []string{"a.nc", "b.nc", "c.nc"} {
		outcome, err := e.IndexFile(ctx, "/data/"+name)
		require.NoError(t, err)
		if name == "a.nc" {
			firstID = outcome.ID
		}
	}

	// When asking for records similar to the first
	results, err := e.FindSimilarByID(firstID, 5)
	require.NoError(t, err)

	// Then the record itself never appears
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotEqual(t, firstID, r.Record.ID)
	}
}

func TestFindSimilarByPath_UnknownPath(t *testing.T) {
	// Given an empty engine
	e := newTestEngine(t)

	// When asking for similars of an unindexed path
	_, err := e.FindSimilarByPath("/data/missing.nc", 5)

	// Then the lookup fails
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeRecordAbsent, fserrors.GetCode(err))
}

func TestIndexDirectory_RecordsFailuresAndContinues(t *testing.T) {
	// Given a directory with two good files and one with a broken sidecar
	dir := t.TempDir()
	writeDataset(t, dir, "good_one.nc", "payload one")
	writeDataset(t, dir, "good_two.nc", "payload two")
	writeDataset(t, dir, "broken.nc", "payload three")
	writeDataset(t, dir, "broken.nc.json", "{not valid json")

	e := newTestEngine(t)

	// When indexing the directory
	summary, err := e.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	// Then the failure is counted and the rest indexed
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Path, "broken.nc")
	assert.Equal(t, 2, e.Stats().Records)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	// Given any engine
	e := newTestEngine(t)

	// When searching with whitespace only
	_, err := e.Search(context.Background(), "   ", 5, 0)

	// Then the query is rejected
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeQueryEmpty, fserrors.GetCode(err))
}

func TestSearch_ScoresStrictlyOrdered(t *testing.T) {
	// Given a populated engine
	dir := t.TempDir()
	writeDataset(t, dir, "sst_pacific_2024.nc", "x")
	writeDataset(t, dir, "sst_atlantic_2023.nc", "y")
	writeDataset(t, dir, "precip_global.grb2", "z")
	e := newTestEngine(t)
	_, err := e.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	// When searching
	results, err := e.Search(context.Background(), "sea surface temperature pacific", 10, 0)
	require.NoError(t, err)

	// Then scores never increase down the list
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 10)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRemoveFileAndCompact(t *testing.T) {
	// Given two indexed files
	dir := t.TempDir()
	a := writeDataset(t, dir, "a.nc", "alpha content")
	writeDataset(t, dir, "b.nc", "beta content")
	e := newTestEngine(t)
	_, err := e.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	// When removing one and compacting
	require.NoError(t, e.RemoveFile(a))

	stats := e.Stats()
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 1, stats.Vectors)
	assert.Equal(t, 1, stats.PathKeys)
	assert.Equal(t, 1, stats.Tombstones)

	reclaimed := e.Compact()

	// Then the tombstone is reclaimed exactly once
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, 0, e.Stats().Tombstones)
	assert.Equal(t, 0, e.Compact())
}

func TestStats_CardinalitiesStayEqual(t *testing.T) {
	// Given a sequence of mixed operations
	dir := t.TempDir()
	a := writeDataset(t, dir, "a.nc", "one")
	writeDataset(t, dir, "b.nc", "two")
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.IndexDirectory(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(a, []byte("one changed"), 0o644))
	_, err = e.IndexFile(ctx, a)
	require.NoError(t, err)
	require.NoError(t, e.RemoveFile(a))

	// Then the three stores agree on cardinality
	stats := e.Stats()
	assert.Equal(t, stats.Records, stats.Vectors)
	assert.Equal(t, stats.Records, stats.PathKeys)
}

func TestSearch_ConcurrentWithIndexing(t *testing.T) {
	// Given an engine being populated
	texts := map[string]string{}
	for i := 0; i < 20; i++ {
		texts[fmt.Sprintf("f%02d.nc", i)] = fmt.Sprintf("dataset number %d temperature series", i)
	}
	e := newTestEngine(t, WithExtractor(&textExtractor{texts: texts}))
	ctx := context.Background()

	// When searches run concurrently with indexing
	var wg sync.WaitGroup
	for name := range texts {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := e.IndexFile(ctx, "/data/"+p)
			assert.NoError(t, err)
		}(name)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Search(ctx, "temperature series", 5, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then every file landed exactly once
	assert.Equal(t, 20, e.Stats().Records)
}
