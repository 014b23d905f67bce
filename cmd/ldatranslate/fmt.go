package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/voting"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/source"
)

var fmtFlags struct {
	defs  string
	write bool
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Print a voting in canonical form",
	Long: `Parse a voting and print it in canonical form.

The voting is read from the file argument, or from stdin when the argument
is missing or "-". Names of declared votings resolve against --defs.

Examples:
  # Print a voting file
  ldatranslate fmt voting.txt

  # Rewrite the file in place
  ldatranslate fmt -w voting.txt

  # Format a voting that executes declared votings
  echo 'execute(MyVote)' | ldatranslate fmt --defs votings/`,
	Args: cobra.MaximumNArgs(1),
	RunE: formatVoting,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().StringVar(&fmtFlags.defs, "defs", "", "definition file or directory for declared votings")
	fmtCmd.Flags().BoolVarP(&fmtFlags.write, "write", "w", false, "write the result back to the file")
}

func formatVoting(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	if fmtFlags.write && path == "-" {
		return cli.NewConfigError("write", "--write needs a file argument")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return cli.NewCommandError("fmt", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(&cfg.Telemetry.Logging, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}

	reg, err := loadDefinitions(commandContext(cmd), fmtFlags.defs, logger)
	if err != nil {
		return cli.NewCommandError("fmt", err)
	}

	out, err := voting.Reformat(string(data), reg)
	if err != nil {
		return cli.NewCommandError("fmt", err)
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	if fmtFlags.write {
		info, err := os.Stat(path)
		if err != nil {
			return cli.NewCommandError("fmt", err)
		}
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return cli.NewCommandError("fmt", err)
		}
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

// loadDefinitions loads a definition file or directory into a fresh
// registry. An empty path yields an empty registry.
func loadDefinitions(ctx context.Context, path string, logger *slog.Logger) (*registry.Registry, error) {
	if path == "" {
		return registry.New(), nil
	}
	return source.NewFileSource(path, logger).Load(ctx)
}
