package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mercator-hq/ldatranslate/pkg/cli"
)

func resetEvalFlags() {
	evalFlags.voting = ""
	evalFlags.contexts = "testdata/contexts.yaml"
	evalFlags.defs = ""
	evalFlags.limit = 0
	evalFlags.timeout = 0
	evalFlags.format = "text"
}

type evalJSON struct {
	Kind   string           `json:"kind"`
	Score  *float64         `json:"score"`
	Global map[string]any   `json:"global"`
	Voters []map[string]any `json:"voters"`
}

func TestEvaluateVoting(t *testing.T) {
	tests := []struct {
		name       string
		voting     string
		defs       string
		limit      int
		wantScore  float64
		wantVoters int
	}{
		{"inline", "aggregate(let s = sumOf): score", "", 0, 7.5, 3},
		{"declared", "Base", "testdata/defs", 0, 7.5, 3},
		{"alias", "base", "testdata/defs", 0, 7.5, 3},
		{"limited by flag", "Base", "testdata/defs", 2, 3.5, 2},
		{"limited call", "Top(2)", "testdata/defs", 0, 2.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvalFlags()
			evalFlags.voting = tt.voting
			evalFlags.defs = tt.defs
			evalFlags.limit = tt.limit
			evalFlags.format = "json"

			cmd, out := newTestCommand("")
			if err := evaluateVoting(cmd, nil); err != nil {
				t.Fatalf("evaluateVoting() error = %v", err)
			}

			var got evalJSON
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON %q: %v", out, err)
			}
			if got.Score == nil || *got.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if len(got.Voters) != tt.wantVoters {
				t.Errorf("voters = %d, want %d", len(got.Voters), tt.wantVoters)
			}
		})
	}
}

func TestEvaluateVotingText(t *testing.T) {
	resetEvalFlags()
	evalFlags.voting = "aggregate(let s = sumOf): score"

	cmd, out := newTestCommand("")
	if err := evaluateVoting(cmd, nil); err != nil {
		t.Fatalf("evaluateVoting() error = %v", err)
	}
	for _, want := range []string{"score: 7.5", "global:", "s: 7.5", "voters:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluateVotingStdin(t *testing.T) {
	resetEvalFlags()
	evalFlags.voting = "aggregate(let m = maxOf): score"
	evalFlags.contexts = "-"
	evalFlags.format = "json"

	cmd, out := newTestCommand("voters:\n  - score: 2\n  - score: 5\n")
	if err := evaluateVoting(cmd, nil); err != nil {
		t.Fatalf("evaluateVoting() error = %v", err)
	}
	var got evalJSON
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Score == nil || *got.Score != 5 {
		t.Errorf("score = %v, want 5", got.Score)
	}
}

func TestEvaluateVotingErrors(t *testing.T) {
	tests := []struct {
		name       string
		voting     string
		contexts   string
		format     string
		wantConfig bool
	}{
		{"unknown voting", "Nope", "testdata/contexts.yaml", "text", false},
		{"missing variable", "aggregate(let s = sumOf): weight", "testdata/contexts.yaml", "text", false},
		{"missing contexts", "RR", "testdata/missing.yaml", "text", false},
		{"csv format", "RR", "testdata/contexts.yaml", "csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvalFlags()
			evalFlags.voting = tt.voting
			evalFlags.contexts = tt.contexts
			evalFlags.format = tt.format

			cmd, _ := newTestCommand("")
			err := evaluateVoting(cmd, nil)
			if err == nil {
				t.Fatal("evaluateVoting() expected error")
			}
			var cfgErr *cli.ConfigError
			if errors.As(err, &cfgErr) != tt.wantConfig {
				t.Errorf("config error = %v, want %v (%v)", !tt.wantConfig, tt.wantConfig, err)
			}
		})
	}
}

func TestReadContexts(t *testing.T) {
	c, err := readContexts(strings.NewReader(""), "")
	if err != nil {
		t.Fatalf("readContexts() error = %v", err)
	}
	if c.Global == nil || c.Global.Len() != 0 || len(c.Voters) != 0 {
		t.Errorf("empty contexts = %+v", c)
	}

	if _, err := readContexts(strings.NewReader("voters: {}\n"), "-"); err == nil {
		t.Error("readContexts() expected error for non-list voters")
	}
	if _, err := readContexts(strings.NewReader("extra: 1\n"), "-"); err == nil {
		t.Error("readContexts() expected error for unknown key")
	}
}
