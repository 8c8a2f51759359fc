package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/output"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the saved index for corruption",
		Long: `Re-read the saved index snapshot and cross-check its parts: every
metadata record must have a vector, every vector a record, and the
stored dimension and dedup policy must match the configuration. The
in-memory result is discarded; nothing is modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd)
		},
	}

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command) error {
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

	loaded, err := eng.Load()
	if err != nil {
		return err
	}
	if !loaded {
		out.Info("No index to validate. Run 'fairsearch index <dir>' first.")
		return nil
	}

	stats := eng.Stats()
	out.Success("index is consistent: %d record(s), dimension %d, policy %s",
		stats.Records, stats.Dimension, stats.Policy)
	return nil
}
