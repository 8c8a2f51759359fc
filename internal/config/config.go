// Package config loads and validates the fairsearch configuration.
// Settings resolve in three layers: built-in defaults, an optional
// YAML file, then FAIRSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairdata/fairsearch/internal/errors"
)

// Config is the complete fairsearch configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Index      IndexConfig      `yaml:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	// IndexDir holds the persisted snapshot blobs.
	IndexDir string `yaml:"index_dir"`
	// CacheDir holds the embedding cache database.
	CacheDir string `yaml:"cache_dir"`
}

// IndexConfig controls what gets indexed and how identity is decided.
type IndexConfig struct {
	// DedupPolicy is "path" or "checksum". Changing it invalidates an
	// existing snapshot; load refuses the mismatch.
	DedupPolicy string `yaml:"dedup_policy"`
	// Extensions limits scanning to these file extensions. Empty uses
	// the built-in scientific data formats.
	Extensions []string `yaml:"extensions"`
	// MaxFileSizeMB caps the per-file size for checksum computation.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	// Workers bounds directory indexing parallelism. 0 = NumCPU.
	Workers int `yaml:"workers"`
	// Recursive controls descent into subdirectories.
	Recursive bool `yaml:"recursive"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	OllamaHost string        `yaml:"ollama_host"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	// CacheSize is the in-memory LRU capacity.
	CacheSize int `yaml:"cache_size"`
	// PersistentCache enables the on-disk embedding cache.
	PersistentCache bool `yaml:"persistent_cache"`
}

// SearchConfig sets query-time defaults.
type SearchConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float32 `yaml:"threshold"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// DefaultConfigName is the config file probed in the working directory.
const DefaultConfigName = ".fairsearch.yaml"

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".fairsearch")
	return &Config{
		Paths: PathsConfig{
			IndexDir: filepath.Join(base, "index"),
			CacheDir: filepath.Join(base, "cache"),
		},
		Index: IndexConfig{
			DedupPolicy:   "path",
			MaxFileSizeMB: 10240,
			Recursive:     true,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			CacheSize:  10000,
		},
		Search: SearchConfig{
			TopK:      5,
			Threshold: 0.0,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// Load resolves the configuration. path may be empty, in which case
// DefaultConfigName is probed in the working directory and a missing
// file is not an error. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigName
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("cannot parse %s", path), err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults apply.
	case os.IsNotExist(err):
		return nil, errors.New(errors.ErrCodeConfigNotFound,
			"config file not found: "+path, err)
	default:
		return nil, errors.ConfigError("cannot read "+path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays FAIRSEARCH_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FAIRSEARCH_INDEX_DIR"); v != "" {
		cfg.Paths.IndexDir = v
	}
	if v := os.Getenv("FAIRSEARCH_CACHE_DIR"); v != "" {
		cfg.Paths.CacheDir = v
	}
	if v := os.Getenv("FAIRSEARCH_DEDUP_POLICY"); v != "" {
		cfg.Index.DedupPolicy = v
	}
	if v := os.Getenv("FAIRSEARCH_EMBEDDINGS_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("FAIRSEARCH_EMBEDDINGS_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("FAIRSEARCH_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("FAIRSEARCH_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Search.TopK = k
		}
	}
	if v := os.Getenv("FAIRSEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Paths.IndexDir == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "paths.index_dir is required", nil)
	}

	switch c.Index.DedupPolicy {
	case "path", "checksum":
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("index.dedup_policy must be 'path' or 'checksum', got %q", c.Index.DedupPolicy), nil)
	}

	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("embeddings.provider must be 'ollama' or 'static', got %q", c.Embeddings.Provider), nil)
	}

	if c.Embeddings.Dimensions < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "embeddings.dimensions cannot be negative", nil)
	}
	if c.Search.TopK <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "search.top_k must be positive", nil)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return errors.New(errors.ErrCodeConfigInvalid, "search.threshold must be within [-1, 1]", nil)
	}
	if c.Index.MaxFileSizeMB <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "index.max_file_size_mb must be positive", nil)
	}
	return nil
}

// MaxFileSizeBytes converts the configured cap to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Index.MaxFileSizeMB) << 20
}
