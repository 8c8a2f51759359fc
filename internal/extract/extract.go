// Package extract derives the metadata and searchable text that get
// embedded for each dataset file. Extraction combines filename pattern
// analysis, a streaming checksum, and optional sidecar metadata files.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairdata/fairsearch/internal/errors"
)

// DefaultMaxFileSize caps how large a file extraction will checksum.
const DefaultMaxFileSize = 10 << 30 // 10 GiB

// Result holds everything extraction learned about one file.
type Result struct {
	Path       string            // Absolute path
	Size       int64             // Size in bytes
	Checksum   string            // Hex SHA-256 of the content
	Attributes map[string]string // Merged filename and sidecar attributes
	Text       string            // Searchable text for embedding
}

// Extractor turns a file path into indexable metadata.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// DatasetExtractor extracts metadata from scientific dataset files.
// It does not parse binary dataset formats; descriptive metadata comes
// from the filename and from sidecar JSON or YAML files when present.
type DatasetExtractor struct {
	maxFileSize int64
}

var _ Extractor = (*DatasetExtractor)(nil)

// NewDatasetExtractor creates an extractor. maxFileSize <= 0 applies
// the default cap.
func NewDatasetExtractor(maxFileSize int64) *DatasetExtractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DatasetExtractor{maxFileSize: maxFileSize}
}

// Extract reads the file's identity and assembles its searchable text.
func (e *DatasetExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return nil, errors.ExtractionError(path, err)
	}
	if info.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}
	if info.Size() > e.maxFileSize {
		return nil, errors.New(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s is %s, exceeds limit of %s",
				path, FormatSize(info.Size()), FormatSize(e.maxFileSize)), nil)
	}

	checksum, err := hashFile(path)
	if err != nil {
		return nil, errors.ExtractionError(path, err)
	}

	attrs := filenameAttributes(path)
	attrs["format"] = formatLabel(path)

	sidecar, err := loadSidecar(path)
	if err != nil {
		return nil, err
	}
	for k, v := range sidecar {
		attrs[k] = v
	}

	return &Result{
		Path:       path,
		Size:       info.Size(),
		Checksum:   checksum,
		Attributes: attrs,
		Text:       searchableText(path, attrs),
	}, nil
}

// hashFile streams the file through SHA-256 without loading it whole.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// formatLabel maps a file extension to a human-readable format name.
func formatLabel(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc", ".nc4":
		return "NetCDF"
	case ".hdf", ".hdf5", ".h5":
		return "HDF5"
	case ".grb", ".grb2", ".grib", ".grib2":
		return "GRIB"
	case ".zarr":
		return "Zarr"
	case ".csv":
		return "CSV"
	case ".parquet":
		return "Parquet"
	case ".json":
		return "JSON"
	case ".tif", ".tiff":
		return "GeoTIFF"
	default:
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return "unknown"
		}
		return strings.ToUpper(ext)
	}
}

// FormatSize renders a byte count in human-readable units.
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", size)
}
