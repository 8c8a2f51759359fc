package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/engine"
	"github.com/fairdata/fairsearch/internal/output"
)

func newIndexCmd() *cobra.Command {
	var rebuild bool
	var noSave bool

	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index dataset files or directories",
		Long: `Index one or more dataset files or directories. Unchanged files
are skipped, modified files are updated in place.

Examples:
  fairsearch index /data/ocean
  fairsearch index sst_201501.nc sst_201502.nc
  fairsearch index /data --rebuild`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args, rebuild, noSave)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard the existing index and start fresh")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not persist the index after indexing")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, paths []string, rebuild, noSave bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if !rebuild {
		if _, err := eng.Load(); err != nil {
			return err
		}
	}

	total := engine.BatchSummary{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			out.Error("%s: %v", path, err)
			total.Failed++
			continue
		}

		if info.IsDir() {
			summary, err := eng.IndexDirectory(ctx, path)
			if err != nil {
				return err
			}
			total.Indexed += summary.Indexed
			total.Updated += summary.Updated
			total.Skipped += summary.Skipped
			total.Failed += summary.Failed
			for _, f := range summary.Failures {
				out.Warning("%s: %v", f.Path, f.Err)
			}
			continue
		}

		outcome, err := eng.IndexFile(ctx, path)
		if err != nil {
			out.Warning("%s: %v", path, err)
			total.Failed++
			continue
		}
		switch outcome.Status {
		case engine.StatusIndexed:
			total.Indexed++
		case engine.StatusUpdated:
			total.Updated++
		case engine.StatusSkipped:
			total.Skipped++
		}
	}

	out.Newline()
	out.Header("Indexing complete")
	out.Field("Indexed", "%d", total.Indexed)
	out.Field("Updated", "%d", total.Updated)
	out.Field("Skipped", "%d", total.Skipped)
	out.Field("Failed", "%d", total.Failed)

	if noSave {
		return nil
	}
	if err := eng.Save(); err != nil {
		return err
	}
	out.Success("index saved to %s", cfg.Paths.IndexDir)
	return nil
}
