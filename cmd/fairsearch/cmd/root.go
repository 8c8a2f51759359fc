// Package cmd provides the CLI commands for fairsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairdata/fairsearch/internal/config"
	"github.com/fairdata/fairsearch/internal/errors"
	"github.com/fairdata/fairsearch/internal/logging"
	"github.com/fairdata/fairsearch/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the fairsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairsearch",
		Short: "Semantic search over scientific dataset files",
		Long: `fairsearch indexes scientific dataset files (NetCDF, HDF5, GRIB,
CSV and friends) and makes them discoverable through natural-language
search over their metadata.

Point it at a data directory to index, then query it:

  fairsearch index /data/ocean
  fairsearch search "sea surface temperature pacific"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fairsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .fairsearch.yaml if present)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.fairsearch/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(*cobra.Command, []string) error {
	logCfg := logging.DefaultConfig()
	// Config errors are surfaced by the command itself, not here.
	if cfg, err := config.Load(configPath); err == nil {
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		if cfg.Logging.FilePath != "" {
			logCfg.FilePath = cfg.Logging.FilePath
		}
		if cfg.Logging.MaxSizeMB > 0 {
			logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxFiles > 0 {
			logCfg.MaxFiles = cfg.Logging.MaxFiles
		}
		logCfg.WriteToStderr = cfg.Logging.WriteToStderr
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging must never block the actual command.
		return nil
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// Execute runs the CLI and prints coded errors in their CLI form.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		return err
	}
	return nil
}
