// Package logging sets up the structured JSON log file that every
// fairsearch command appends to under ~/.fairsearch/logs/. Console
// output stays on stdout; the log file is for diagnostics.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls the log file and verbosity.
type Config struct {
	// Level is the minimum record level (debug, info, warn, error).
	Level string
	// FilePath is the log file. Its parent directory is created on demand.
	FilePath string
	// MaxSizeMB is the size at which the active file is rolled over.
	MaxSizeMB int
	// MaxFiles is how many rolled archives survive pruning.
	MaxFiles int
	// WriteToStderr mirrors records to stderr, for debugging a live run.
	WriteToStderr bool
}

// DefaultConfig logs at info level to ~/.fairsearch/logs/fairsearch.log,
// rolling at 10 MB and keeping three archives.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  3,
	}
}

// Setup opens the log file and returns a JSON slog.Logger writing to it,
// plus a cleanup that flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	lf, err := OpenLogFile(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = lf
	if cfg.WriteToStderr {
		out = io.MultiWriter(lf, os.Stderr)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	cleanup := func() {
		_ = lf.Close()
	}
	return slog.New(handler), cleanup, nil
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
