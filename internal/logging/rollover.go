package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogFile is an append-only io.Writer that rolls itself over once the
// active file grows past a size limit. Rolled archives sit next to the
// active file as <name>-<timestamp><ext>; the timestamp layout sorts
// lexicographically, so pruning drops the oldest first.
type LogFile struct {
	path  string
	limit int64
	keep  int

	mu   sync.Mutex
	f    *os.File
	size int64
}

const archiveStamp = "20060102-150405.000"

// OpenLogFile opens or creates the log file at path, creating its
// parent directory if needed. The file rolls over once it exceeds
// maxSizeMB; at most keep archives are retained.
func OpenLogFile(path string, maxSizeMB, keep int) (*LogFile, error) {
	if keep < 0 {
		keep = 0
	}
	lf := &LogFile{
		path:  path,
		limit: int64(maxSizeMB) << 20,
		keep:  keep,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := lf.open(); err != nil {
		return nil, err
	}
	return lf, nil
}

func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// An empty file is never archived, so a record larger than the
	// limit still lands somewhere.
	if l.size > 0 && l.size+int64(len(p)) > l.limit {
		if err := l.roll(); err != nil {
			// Keep appending to the current file rather than drop records.
			fmt.Fprintf(os.Stderr, "log rollover: %v\n", err)
		}
	}

	n, err := l.f.Write(p)
	l.size += int64(n)
	return n, err
}

// Close flushes and closes the active file. Further writes fail.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	_ = l.f.Sync()
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *LogFile) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	l.f = f
	l.size = info.Size()
	return nil
}

// roll renames the active file to a timestamped archive, prunes old
// archives, and starts a fresh file.
func (l *LogFile) roll() error {
	if l.f != nil {
		if err := l.f.Close(); err != nil {
			l.f = nil
			return err
		}
		l.f = nil
	}
	l.size = 0

	name := l.archiveName(time.Now())
	if err := os.Rename(l.path, name); err != nil && !os.IsNotExist(err) {
		return err
	}
	l.prune()
	return l.open()
}

// archiveName picks an unused timestamped sibling of the active file.
// A numeric suffix disambiguates rolls within the same millisecond.
func (l *LogFile) archiveName(now time.Time) string {
	ext := filepath.Ext(l.path)
	stem := strings.TrimSuffix(l.path, ext)
	stamp := now.Format(archiveStamp)

	name := fmt.Sprintf("%s-%s%s", stem, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%s.%d%s", stem, stamp, i, ext)
	}
}

func (l *LogFile) prune() {
	ext := filepath.Ext(l.path)
	stem := strings.TrimSuffix(l.path, ext)

	archives, err := filepath.Glob(stem + "-*" + ext)
	if err != nil || len(archives) <= l.keep {
		return
	}
	sort.Strings(archives)
	for _, old := range archives[:len(archives)-l.keep] {
		_ = os.Remove(old)
	}
}
