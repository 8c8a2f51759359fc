package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/engine"
	"github.com/fairdata/fairsearch/internal/extract"
	"github.com/fairdata/fairsearch/internal/output"
)

type searchOptions struct {
	limit     int
	threshold float32
	jsonOut   bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed datasets by natural-language query",
		Long: `Search the index with a natural-language description of the data
you are looking for.

Examples:
  fairsearch search "sea surface temperature pacific"
  fairsearch search "monthly precipitation" --limit 10
  fairsearch search "wind speed" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = config default)")
	cmd.Flags().Float32Var(&opts.threshold, "threshold", -1, "Minimum similarity score (-1 = config default)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output results as JSON")

	return cmd
}

// searchResultJSON is the JSON shape of one hit.
type searchResultJSON struct {
	ID       uint64            `json:"id"`
	Score    float32           `json:"score"`
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	Checksum string            `json:"checksum"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
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

	start := time.Now()
	results, err := eng.Search(ctx, query, opts.limit, opts.threshold)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return printResultsJSON(cmd, results)
	}

	if len(results) == 0 {
		out.Info("No results for %q.", query)
		return nil
	}

	out.Header("Results")
	printResults(out, results)
	out.Newline()
	out.Info("%d result(s) in %s", len(results), time.Since(start).Round(time.Millisecond))
	return nil
}

func printResults(out *output.Writer, results []engine.SearchResult) {
	for i, r := range results {
		detail := r.Record.Attributes["format"]
		if detail != "" {
			detail += ", "
		}
		detail += extract.FormatSize(r.Record.Size)
		if title := r.Record.Attributes["title"]; title != "" {
			detail += ": " + title
		}
		out.Result(i+1, r.Score, r.Record.Path, detail)
	}
}

func printResultsJSON(cmd *cobra.Command, results []engine.SearchResult) error {
	payload := make([]searchResultJSON, len(results))
	for i, r := range results {
		payload[i] = searchResultJSON{
			ID:       r.Record.ID,
			Score:    r.Score,
			Path:     r.Record.Path,
			Size:     r.Record.Size,
			Checksum: r.Record.Checksum,
			Metadata: r.Record.Attributes,
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
