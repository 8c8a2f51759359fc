package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/fairdata/fairsearch/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_BasicFile(t *testing.T) {
	// Given a dataset file with a patterned name
	dir := t.TempDir()
	path := writeFile(t, dir, "sst_monthly_20240115_v2.nc", "binary payload")
	e := NewDatasetExtractor(0)

	// When extracting
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	// Then identity and filename attributes are populated
	assert.Equal(t, path, res.Path)
	assert.Equal(t, int64(len("binary payload")), res.Size)
	assert.Len(t, res.Checksum, 64)
	assert.Equal(t, "NetCDF", res.Attributes["format"])
	assert.Equal(t, "2024-01-15", res.Attributes["date_from_filename"])
	assert.Equal(t, "2", res.Attributes["version"])
	assert.Contains(t, res.Attributes["variables_hint"], "sea_surface_temperature")
	assert.Contains(t, res.Text, "sst monthly")
	assert.Contains(t, res.Text, "Format: NetCDF")
}

func TestExtract_ChecksumTracksContent(t *testing.T) {
	// Given two files with identical content and a third with different content
	dir := t.TempDir()
	a := writeFile(t, dir, "a.nc", "same bytes")
	b := writeFile(t, dir, "b.nc", "same bytes")
	c := writeFile(t, dir, "c.nc", "other bytes")
	e := NewDatasetExtractor(0)
	ctx := context.Background()

	ra, err := e.Extract(ctx, a)
	require.NoError(t, err)
	rb, err := e.Extract(ctx, b)
	require.NoError(t, err)
	rc, err := e.Extract(ctx, c)
	require.NoError(t, err)

	// Then equal content hashes equal, different content differs
	assert.Equal(t, ra.Checksum, rb.Checksum)
	assert.NotEqual(t, ra.Checksum, rc.Checksum)
}

func TestExtract_JSONSidecar(t *testing.T) {
	// Given a data file with a JSON sidecar
	dir := t.TempDir()
	path := writeFile(t, dir, "ocean_temp.nc", "payload")
	writeFile(t, dir, "ocean_temp.nc.json", `{
		"title": "Ocean temperature monthly means",
		"institution": "FAIR Data Lab",
		"variables": ["temperature", "salinity"],
		"grid": {"resolution": "0.25deg"}
	}`)
	e := NewDatasetExtractor(0)

	// When extracting
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	// Then sidecar attributes are merged, nested keys flattened
	assert.Equal(t, "Ocean temperature monthly means", res.Attributes["title"])
	assert.Equal(t, "temperature, salinity", res.Attributes["variables"])
	assert.Equal(t, "0.25deg", res.Attributes["grid.resolution"])
	assert.Contains(t, res.Text, "Ocean temperature monthly means")
	assert.Contains(t, res.Text, "Variables: temperature, salinity")
}

func TestExtract_YAMLSidecar(t *testing.T) {
	// Given a data file with a YAML sidecar
	dir := t.TempDir()
	path := writeFile(t, dir, "precip_daily.grb2", "payload")
	writeFile(t, dir, "precip_daily.grb2.yaml", "title: Daily precipitation\nsource: reanalysis\n")
	e := NewDatasetExtractor(0)

	// When extracting
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	// Then the YAML attributes appear alongside the format label
	assert.Equal(t, "GRIB", res.Attributes["format"])
	assert.Equal(t, "Daily precipitation", res.Attributes["title"])
	assert.Equal(t, "reanalysis", res.Attributes["source"])
}

func TestExtract_MalformedSidecarFails(t *testing.T) {
	// Given a sidecar with invalid JSON
	dir := t.TempDir()
	path := writeFile(t, dir, "data.nc", "payload")
	writeFile(t, dir, "data.nc.json", "{not json")
	e := NewDatasetExtractor(0)

	// When extracting
	_, err := e.Extract(context.Background(), path)

	// Then extraction fails with an extraction error
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeExtractionFailed, fserrors.GetCode(err))
}

func TestExtract_MissingFile(t *testing.T) {
	// Given a path that does not exist
	e := NewDatasetExtractor(0)

	// When extracting
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.nc"))

	// Then a file-not-found error is returned
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeFileNotFound, fserrors.GetCode(err))
}

func TestExtract_FileTooLarge(t *testing.T) {
	// Given a size cap below the file size
	dir := t.TempDir()
	path := writeFile(t, dir, "big.nc", "0123456789")
	e := NewDatasetExtractor(5)

	// When extracting
	_, err := e.Extract(context.Background(), path)

	// Then the cap is enforced
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeFileTooLarge, fserrors.GetCode(err))
}

func TestExtract_DirectoryRejected(t *testing.T) {
	// Given a directory path
	e := NewDatasetExtractor(0)

	// When extracting
	_, err := e.Extract(context.Background(), t.TempDir())

	// Then validation fails
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeInvalidInput, fserrors.GetCode(err))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512.00 B", FormatSize(512))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "2.50 MB", FormatSize(2621440))
}
