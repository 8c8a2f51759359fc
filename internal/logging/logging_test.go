package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	// Unknown levels fall back to info
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: logging configured to a temp file, stderr disabled
	dir := t.TempDir()
	path := filepath.Join(dir, "fairsearch.log")
	cfg := Config{
		Level:     "info",
		FilePath:  path,
		MaxSizeMB: 1,
		MaxFiles:  2,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	// When: a log line is emitted
	logger.Info("indexed file", slog.String("path", "/d/a.nc"))
	cleanup()

	// Then: the file contains a JSON record with the message
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"indexed file"`)
	assert.Contains(t, string(data), `"path":"/d/a.nc"`)
}

func TestLogFile_RollsAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roll.log")

	// A 0 MB limit forces a rollover on every write after the first
	lf, err := OpenLogFile(path, 0, 5)
	require.NoError(t, err)
	defer func() { _ = lf.Close() }()

	line := strings.Repeat("x", 128) + "\n"
	for i := 0; i < 3; i++ {
		_, err = lf.Write([]byte(line))
		require.NoError(t, err)
	}

	// The active file holds only the latest write, archives hold the rest
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, string(data))

	archives, err := filepath.Glob(filepath.Join(dir, "roll-*.log"))
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

func TestLogFile_PrunesOldestArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roll.log")

	lf, err := OpenLogFile(path, 0, 2)
	require.NoError(t, err)
	defer func() { _ = lf.Close() }()

	line := strings.Repeat("y", 64) + "\n"
	for i := 0; i < 6; i++ {
		_, err = lf.Write([]byte(line))
		require.NoError(t, err)
	}

	// Only the newest two archives survive
	archives, err := filepath.Glob(filepath.Join(dir, "roll-*.log"))
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

func TestLogFile_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	lf, err := OpenLogFile(filepath.Join(dir, "idem.log"), 1, 1)
	require.NoError(t, err)

	require.NoError(t, lf.Close())
	require.NoError(t, lf.Close())
}
