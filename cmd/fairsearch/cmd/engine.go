package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fairdata/fairsearch/internal/config"
	"github.com/fairdata/fairsearch/internal/embed"
	"github.com/fairdata/fairsearch/internal/engine"
	"github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/extract"
	"github.com/fairdata/fairsearch/internal/persist"
	"github.com/fairdata/fairsearch/internal/scanner"
	"github.com/fairdata/fairsearch/internal/store"
)

// buildEmbedder constructs the configured embedding stack: the base
// provider wrapped in the LRU cache and, when enabled, the on-disk
// cache tier.
func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	var base embed.Embedder
	switch cfg.Embeddings.Provider {
	case "static":
		base = embed.NewStaticEmbedder()
	case "ollama":
		ollama, err := embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
			Timeout:    cfg.Embeddings.Timeout,
			MaxRetries: cfg.Embeddings.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		base = ollama
	default:
		return nil, errors.ConfigError("unknown embeddings provider: "+cfg.Embeddings.Provider, nil)
	}

	var disk embed.PersistentCache
	if cfg.Embeddings.PersistentCache {
		if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
			return nil, errors.PersistenceError("create cache directory", err)
		}
		cache, err := embed.NewSQLiteCache(
			filepath.Join(cfg.Paths.CacheDir, "embeddings.db"), base.ModelName())
		if err != nil {
			return nil, err
		}
		disk = cache
	}

	return embed.NewCachedEmbedder(base, cfg.Embeddings.CacheSize, disk)
}

// buildEngine assembles an engine from configuration without loading
// any snapshot.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	emb, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pm, err := persist.NewManager(cfg.Paths.IndexDir)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	policy, err := store.ParseDedupPolicy(cfg.Index.DedupPolicy)
	if err != nil {
		_ = emb.Close()
		return nil, errors.ConfigError(err.Error(), err)
	}

	eng, err := engine.New(emb, pm, policy,
		engine.WithExtractor(extract.NewDatasetExtractor(cfg.MaxFileSizeBytes())),
		engine.WithScanner(scanner.New(scanner.Options{
			Extensions: cfg.Index.Extensions,
			Recursive:  cfg.Index.Recursive,
		})),
		engine.WithDefaultTopK(cfg.Search.TopK),
		engine.WithThreshold(cfg.Search.Threshold),
		engine.WithWorkers(cfg.Index.Workers),
	)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	return eng, nil
}

// openEngine builds the engine and loads the saved snapshot if one
// exists.
func openEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := eng.Load(); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return eng, nil
}
