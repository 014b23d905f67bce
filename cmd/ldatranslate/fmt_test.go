package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/ldatranslate/pkg/voting"
)

func resetFmtFlags() {
	fmtFlags.defs = ""
	fmtFlags.write = false
}

func TestFormatVoting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voting.txt")
	if err := os.WriteFile(path, []byte("global:let x=1"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		stdin string
		defs  string
		want  string
	}{
		{"file", []string{path}, "", "", "global: let x = 1;\n"},
		{"stdin", nil, "global:let x=1", "", "global: let x = 1;\n"},
		{"dash", []string{"-"}, "global:let x=1", "", "global: let x = 1;\n"},
		{"declared name", nil, "Base", "testdata/defs", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFmtFlags()
			fmtFlags.defs = tt.defs
			cmd, out := newTestCommand(tt.stdin)
			if err := formatVoting(cmd, tt.args); err != nil {
				t.Fatalf("formatVoting() error = %v", err)
			}
			want := tt.want
			if want == "" {
				reg, err := loadDefinitions(context.Background(), tt.defs, nil)
				if err != nil {
					t.Fatal(err)
				}
				printed, err := voting.Reformat(tt.stdin, reg)
				if err != nil {
					t.Fatal(err)
				}
				want = strings.TrimSuffix(printed, "\n") + "\n"
			}
			if out.String() != want {
				t.Errorf("output = %q, want %q", out.String(), want)
			}
		})
	}
}

func TestFormatVotingWrite(t *testing.T) {
	resetFmtFlags()
	path := filepath.Join(t.TempDir(), "voting.txt")
	if err := os.WriteFile(path, []byte("global:let x=1"), 0o600); err != nil {
		t.Fatal(err)
	}

	fmtFlags.write = true
	cmd, out := newTestCommand("")
	if err := formatVoting(cmd, []string{path}); err != nil {
		t.Fatalf("formatVoting() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("--write printed %q", out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "global: let x = 1;\n" {
		t.Errorf("file = %q", data)
	}
}

func TestFormatVotingErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		write bool
	}{
		{"parse error", nil, "NoSuchVoting", false},
		{"missing file", []string{"testdata/missing.txt"}, "", false},
		{"write without file", nil, "global:let x=1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFmtFlags()
			fmtFlags.write = tt.write
			cmd, _ := newTestCommand(tt.stdin)
			if err := formatVoting(cmd, tt.args); err == nil {
				t.Error("formatVoting() expected error")
			}
		})
	}
}
