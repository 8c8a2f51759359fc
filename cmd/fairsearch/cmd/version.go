package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), "fairsearch "+version.Short())
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include commit and build details")

	return cmd
}
