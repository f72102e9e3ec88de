// Package cli provides the wpfixit command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/wp-fixit/backend/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	verbose bool

	cfg      *config.Config
	logger   *slog.Logger
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "wpfixit",
	Short: "WordPress troubleshooting assistant",
	Long: `wpfixit talks to the WP-FixIt assistant from the terminal.

Describe what is wrong with your WordPress site and get step-by-step
troubleshooting advice, with links to the sources used when search
grounding is available.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		// Terminal output belongs to the command; logs go to LOG_FILE unless -v.
		var text io.Writer = io.Discard
		if verbose {
			text = os.Stderr
			cfg.Log.Level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLoggerTo(text, cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(presetsCmd)
}
