// Package cmd provides the CLI commands for docvec.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docvec/internal/config"
	"github.com/Aman-CERP/docvec/internal/logging"
	"github.com/Aman-CERP/docvec/pkg/version"
)

var (
	configPath string
	storePath  string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the docvec CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docvec",
		Short: "Document indexing and hybrid retrieval",
		Long: `docvec chunks, embeds, and indexes documents for hybrid
vector and lexical search.

Run 'docvec index <path>' to build a store, then 'docvec search <query>'
to retrieve ranked results from it.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if loggingCleanup != nil {
				loggingCleanup()
				loggingCleanup = nil
			}
			return nil
		},
	}

	cmd.SetVersionTemplate("docvec version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a docvec.yaml config file")
	cmd.PersistentFlags().StringVar(&storePath, "store", "", "Override the store path from config")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docvec/logs/")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSearchAllCmd())
	cmd.AddCommand(newBatchSearchCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = false

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads configPath if set, falling back to defaults, and applies
// the --store override shared by every subcommand.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}
	return cfg, nil
}
