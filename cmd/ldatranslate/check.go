package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/source"
)

var checkFlags struct {
	defs   string
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate voting definition files",
	Long: `Load voting definition files and report errors.

Files are registered in load order into one registry, the same way the
server loads them, so a definition may execute votings declared before it.
A file that fails is reported and the check continues with the next file.

Examples:
  # Check a directory
  ldatranslate check --defs votings/

  # Check the definitions named by the config file
  ldatranslate check --config config.yaml

  # JSON output for CI/CD
  ldatranslate check --defs votings/ --format json`,
	RunE: checkDefinitions,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.defs, "defs", "d", "", "definition file or directory (default: voting.path from config)")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json, csv")
}

// CheckResult is the outcome for one definition file.
type CheckResult struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Votings int    `json:"votings"` // names added, aliases included
	Error   string `json:"error,omitempty"`
}

// CheckReport is the outcome of a check run.
type CheckReport struct {
	Files   []CheckResult `json:"files"`
	Names   []string      `json:"names"`
	Version string        `json:"version"`
	Valid   bool          `json:"valid"`
}

func checkDefinitions(cmd *cobra.Command, args []string) error {
	path := checkFlags.defs
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Voting.Mode == "git" {
			return cli.NewConfigError("voting.mode", "check reads local files, pass --defs with the checked-out path")
		}
		path = cfg.Voting.Path
	}
	if path == "" {
		return cli.NewConfigError("defs", "either --defs or voting.path must be set")
	}

	report, err := checkPath(path)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	var out any = report
	if format != cli.FormatJSON {
		out = report.table()
	}
	if err := writeOutput(cmd, format, out); err != nil {
		return err
	}

	if !report.Valid {
		return cli.NewCommandError("check", errors.New("invalid voting definitions"))
	}
	return nil
}

func checkPath(path string) (*CheckReport, error) {
	files, err := source.NewFileSource(path, nil).Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no definition files found in %s", path)
	}

	reg := registry.New()
	report := &CheckReport{Valid: true}
	for _, file := range files {
		res := checkFile(reg, file)
		if !res.Valid {
			report.Valid = false
		}
		report.Files = append(report.Files, res)
	}
	report.Names = reg.Names()
	report.Version = reg.Version()
	return report, nil
}

func checkFile(reg *registry.Registry, file string) CheckResult {
	res := CheckResult{File: file, Valid: true}
	before := reg.Len()

	data, err := os.ReadFile(file)
	if err != nil {
		res.Valid, res.Error = false, err.Error()
		return res
	}
	// entries before a failing one stay registered
	doc, err := source.ParseDocument(data, file)
	if err == nil {
		err = doc.Register(reg, file)
	}
	if err != nil {
		res.Valid, res.Error = false, err.Error()
	}
	res.Votings = reg.Len() - before
	return res
}

func (r *CheckReport) table() *cli.Table {
	t := &cli.Table{Headers: []string{"FILE", "STATUS", "NAMES", "ERROR"}}
	for _, f := range r.Files {
		status := "ok"
		if !f.Valid {
			status = "invalid"
		}
		t.Rows = append(t.Rows, []string{f.File, status, strconv.Itoa(f.Votings), f.Error})
	}
	return t
}
