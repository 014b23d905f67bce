package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/ldatranslate/pkg/cli"
	"mercator-hq/ldatranslate/pkg/voting/engine"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/source"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

var evalFlags struct {
	voting   string
	contexts string
	defs     string
	limit    int
	timeout  time.Duration
	format   string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a voting against contexts",
	Long: `Evaluate a voting against a global context and voter contexts.

The voting is a build-in name, a declared name, a limited call such as
"CombSum(3)" or voting source text. Contexts are read from a YAML file
("-" for stdin):

  global:
    score_candidate: 0.5
  voters:
    - score: 4
      rank: 1
    - score: 2.5
      rank: 2

The contexts are printed after evaluation, so bindings made by the voting
are visible.

Examples:
  # Evaluate a build-in voting
  ldatranslate eval --voting CombSum --contexts contexts.yaml

  # Evaluate a declared voting over the best two voters
  ldatranslate eval --voting MyVote --defs votings/ --limit 2 --contexts contexts.yaml

  # Evaluate source text, JSON output
  ldatranslate eval --voting 'aggregate(let s = sumOf): score' --contexts contexts.yaml --format json`,
	RunE: evaluateVoting,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalFlags.voting, "voting", "", "voting name or source text (required)")
	evalCmd.Flags().StringVar(&evalFlags.contexts, "contexts", "", "YAML contexts file, - for stdin")
	evalCmd.Flags().StringVarP(&evalFlags.defs, "defs", "d", "", "definition file or directory (default: voting source from config)")
	evalCmd.Flags().IntVar(&evalFlags.limit, "limit", 0, "evaluate over the best k voters by rank")
	evalCmd.Flags().DurationVar(&evalFlags.timeout, "timeout", 0, "evaluation timeout (default: engine.evaluation_timeout)")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")
	_ = evalCmd.MarkFlagRequired("voting")
}

// Contexts is the YAML layout of an eval contexts file.
type Contexts struct {
	Global *scope.Vars       `yaml:"global"`
	Voters []*scope.Vars     `yaml:"voters"`
	Labels map[string]string `yaml:"labels"`
}

// EvalOutput is the result of an eval run.
type EvalOutput struct {
	EvaluationID string        `json:"evaluation_id" yaml:"evaluation_id"`
	Voting       string        `json:"voting" yaml:"voting"`
	Kind         string        `json:"kind" yaml:"kind"`
	Value        value.Value   `json:"value" yaml:"-"`
	Result       string        `json:"-" yaml:"value"`
	Score        *float64      `json:"score,omitempty" yaml:"score,omitempty"`
	Fallback     bool          `json:"fallback" yaml:"fallback,omitempty"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Global       *scope.Vars   `json:"global" yaml:"global"`
	Voters       []*scope.Vars `json:"voters" yaml:"voters"`
}

// String renders the output as YAML for the text format.
func (o *EvalOutput) String() string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(o); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	_ = enc.Close()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func evaluateVoting(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evalFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "eval supports text and json output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(&cfg.Telemetry.Logging, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}

	contexts, err := readContexts(cmd.InOrStdin(), evalFlags.contexts)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	engineCfg := engine.FromConfig(cfg.Engine)
	if evalFlags.timeout > 0 {
		engineCfg.WithEvaluationTimeout(evalFlags.timeout)
	}

	var src source.Source
	switch {
	case evalFlags.defs != "":
		src = source.NewFileSource(evalFlags.defs, logger)
	case cfg.Voting.Path != "" || cfg.Voting.Mode == "git":
		if src, err = source.New(&cfg.Voting, logger); err != nil {
			return cli.NewConfigError("voting", err.Error())
		}
	}

	eng, err := engine.New(engineCfg, src, logger)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	voters := make([]scope.Context, len(contexts.Voters))
	for i, v := range contexts.Voters {
		voters[i] = v
	}
	res, err := eng.Evaluate(commandContext(cmd), &engine.Request{
		Voting: evalFlags.voting,
		Global: contexts.Global,
		Voters: voters,
		Labels: contexts.Labels,
		Limit:  evalFlags.limit,
	})
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	out := &EvalOutput{
		EvaluationID: res.EvaluationID,
		Voting:       res.Voting,
		Kind:         res.Kind,
		Value:        res.Value,
		Result:       res.Value.String(),
		Fallback:     res.Fallback,
		Global:       contexts.Global,
		Voters:       make([]*scope.Vars, len(res.Voters)),
	}
	if res.HasScore {
		score := res.Score
		out.Score = &score
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	for i, v := range res.Voters {
		out.Voters[i] = varsOf(v)
	}

	if format == cli.FormatJSON {
		return writeOutput(cmd, format, out)
	}
	return writeOutput(cmd, format, out.String())
}

// readContexts decodes the contexts file at path, or stdin for "-". A
// missing path yields an empty global context and no voters.
func readContexts(stdin io.Reader, path string) (*Contexts, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var c Contexts
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid contexts file %s: %w", path, err)
	}
	if c.Global == nil {
		c.Global = scope.New()
	}
	for i, v := range c.Voters {
		if v == nil {
			c.Voters[i] = scope.New()
		}
	}
	return &c, nil
}

// varsOf returns c as *scope.Vars, copying contexts of other types.
func varsOf(c scope.Context) *scope.Vars {
	if v, ok := c.(*scope.Vars); ok {
		return v
	}
	return scope.New(c.Snapshot()...)
}
