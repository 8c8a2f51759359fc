package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/engine"
	"github.com/fairdata/fairsearch/internal/extract"
	"github.com/fairdata/fairsearch/internal/output"
)

func newStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

// statsJSON is the JSON shape of index statistics.
type statsJSON struct {
	Records    int    `json:"records"`
	Vectors    int    `json:"vectors"`
	PathKeys   int    `json:"path_keys"`
	Tombstones int    `json:"tombstones"`
	Dimension  int    `json:"dimension"`
	Policy     string `json:"dedup_policy"`
	Model      string `json:"embedding_model"`
	DiskSize   int64  `json:"disk_size_bytes"`
	IndexDir   string `json:"index_dir"`
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOut bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	stats := eng.Stats()

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statsJSON{
			Records:    stats.Records,
			Vectors:    stats.Vectors,
			PathKeys:   stats.PathKeys,
			Tombstones: stats.Tombstones,
			Dimension:  stats.Dimension,
			Policy:     string(stats.Policy),
			Model:      stats.Model,
			DiskSize:   stats.DiskSize,
			IndexDir:   stats.IndexDir,
		})
	}

	printStats(out, stats)
	return nil
}

func printStats(out *output.Writer, stats engine.Stats) {
	out.Header("Index statistics")
	out.Field("Records", "%d", stats.Records)
	out.Field("Vectors", "%d", stats.Vectors)
	out.Field("Tombstones", "%d", stats.Tombstones)
	out.Field("Dimension", "%d", stats.Dimension)
	out.Field("Dedup policy", "%s", stats.Policy)
	out.Field("Model", "%s", stats.Model)
	out.Field("On disk", "%s", extract.FormatSize(stats.DiskSize))
	out.Field("Index dir", "%s", stats.IndexDir)
}
