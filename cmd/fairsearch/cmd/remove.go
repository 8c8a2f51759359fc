package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/output"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <path>...",
		Short: "Remove indexed datasets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), cmd, args)
		},
	}

	return cmd
}

func runRemove(ctx context.Context, cmd *cobra.Command, paths []string) error {
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

	removed := 0
	for _, path := range paths {
		if err := eng.RemoveFile(path); err != nil {
			out.Warning("%s: %v", path, err)
			continue
		}
		removed++
	}

	if removed == 0 {
		out.Info("Nothing removed.")
		return nil
	}

	if err := eng.Save(); err != nil {
		return err
	}
	out.Success("removed %d dataset(s)", removed)
	return nil
}
