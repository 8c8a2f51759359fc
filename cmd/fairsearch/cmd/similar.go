package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/output"
)

func newSimilarCmd() *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "similar <path>",
		Short: "Find datasets similar to an already indexed file",
		Long: `Find indexed datasets whose metadata is most similar to the given
file's. The file itself is excluded from the results.

Example:
  fairsearch similar /data/ocean/sst_201501.nc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd.Context(), cmd, args[0], limit, jsonOut)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 = config default)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")

	return cmd
}

func runSimilar(ctx context.Context, cmd *cobra.Command, path string, limit int, jsonOut bool) error {
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

	results, err := eng.FindSimilarByPath(path, limit)
	if err != nil {
		return err
	}

	if jsonOut {
		return printResultsJSON(cmd, results)
	}

	if len(results) == 0 {
		out.Info("No similar datasets found.")
		return nil
	}

	out.Header("Similar datasets")
	printResults(out, results)
	return nil
}
