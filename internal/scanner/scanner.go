// Package scanner discovers dataset files under a directory tree.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fairdata/fairsearch/internal/errors"
)

// DefaultExtensions lists the scientific data formats scanned when the
// configuration names none.
var DefaultExtensions = []string{
	".nc", ".nc4",
	".hdf", ".hdf5", ".h5",
	".grb", ".grb2", ".grib", ".grib2",
	".zarr",
	".csv", ".parquet",
	".tif", ".tiff",
}

// Options controls a directory scan.
type Options struct {
	Extensions []string // Extensions to include; empty means DefaultExtensions
	Recursive  bool     // Descend into subdirectories
}

// Scanner walks a directory tree collecting dataset file paths.
type Scanner struct {
	include map[string]bool
	opts    Options
}

// New creates a scanner with the given options.
func New(opts Options) *Scanner {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	include := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		include[strings.ToLower(ext)] = true
	}
	return &Scanner{include: include, opts: opts}
}

// Scan returns the matching file paths under root in sorted order.
// Hidden directories are skipped. Unreadable subdirectories are logged
// and skipped rather than failing the walk.
func (s *Scanner) Scan(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidPath,
			"cannot resolve directory path: "+root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound,
				"directory not found: "+absRoot, err)
		}
		return nil, errors.New(errors.ErrCodeInvalidPath,
			"cannot access directory: "+absRoot, err)
	}
	if !info.IsDir() {
		return nil, errors.ValidationError(absRoot+" is not a directory", nil)
	}

	var paths []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot {
				if strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if !s.opts.Recursive {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if s.include[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(paths)
	return paths, nil
}
