// Package cmd provides the CLI commands for cortex.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cortexlabs/cortex/internal/config"
	"github.com/cortexlabs/cortex/internal/index"
	"github.com/cortexlabs/cortex/internal/logging"
	"github.com/cortexlabs/cortex/pkg/cortex"
	"github.com/cortexlabs/cortex/pkg/version"
)

var (
	dataDir   string
	debugMode bool
)

// NewRootCmd creates the root command for the cortex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cortex",
		Short:   "Local file-intelligence engine: scan, watch, and search a set of directories",
		Version: version.Version,
		Long: `cortex indexes a set of directories, watches them for changes, and
serves hybrid (keyword + semantic) search over the results entirely
locally — no data leaves the machine.`,
	}
	cmd.SetVersionTemplate("cortex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDir, "store", "", "path to the cortex database file (default: ~/.cortex/cortex.db)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.cortex/logs/")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFileCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openEngine loads configuration (applying the --store override), opens
// a cortex.Engine against it, and wires up debug logging if requested.
// Callers must Close() the returned Engine.
func openEngine() (*cortex.Engine, error) {
	if debugMode {
		logger, _, err := logging.Setup(logging.DebugConfig())
		if err == nil {
			slog.SetDefault(logger)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Store.Path = dataDir
	}

	return cortex.Open(cfg, index.NewLogSink(slog.Default()))
}
