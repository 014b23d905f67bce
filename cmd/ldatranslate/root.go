package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ldatranslate",
	Short: "ldatranslate - voting expression evaluator",
	Long: `ldatranslate parses, checks and evaluates voting expressions.

A voting combines the scores of many voters into one value. Votings are
written in a small language of per-voter, global and aggregate steps,
can be declared under a name and reused by other votings.

ldatranslate provides:
  - Canonical formatting of votings
  - Validation of voting definition files
  - Evaluation against YAML contexts
  - An HTTP bridge with hot reload of definitions
  - An audit trail of evaluations with retention and export`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig initializes the process configuration from --config and the
// LDATRANSLATE_ environment.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.GetConfig(), nil
}

// newLogger builds the process logger. Short-lived commands log warnings
// only unless --verbose is set.
func newLogger(cfg *config.LoggingConfig, w io.Writer, quiet bool) (*slog.Logger, error) {
	level := cfg.Level
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "warn"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Writer:    w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger.Slog(), nil
}

// writeOutput renders data to the command's stdout.
func writeOutput(cmd *cobra.Command, format cli.OutputFormat, data any) error {
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
