package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/output"
)

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Reclaim space left by removed datasets",
		Long: `Rebuild the vector storage without tombstoned rows and save the
compacted index. Useful after removing many files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd.Context(), cmd)
		},
	}

	return cmd
}

func runCompact(ctx context.Context, cmd *cobra.Command) error {
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

	reclaimed := eng.Compact()
	if reclaimed == 0 {
		out.Info("Nothing to compact.")
		return nil
	}

	if err := eng.Save(); err != nil {
		return err
	}
	out.Success("reclaimed %d tombstoned vector(s)", reclaimed)
	return nil
}
