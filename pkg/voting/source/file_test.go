package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mercator-hq/ldatranslate/pkg/voting/registry"
)

const (
	baseDoc = `votings:
  - source: |
      declare Base { aggregate(let s = sumOf): score }
`
	derivedDoc = `votings:
  - source: |
      declare Doubled {
        execute(let b = Base);
        global: b * 2
      }
    alias: doubled
`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSourceLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10_base.yaml"), baseDoc)
	writeFile(t, filepath.Join(dir, "20_derived.yml"), derivedDoc)
	writeFile(t, filepath.Join(dir, "sub", "30_more.yaml"), "votings:\n  - source: \"declare More { global: 1 }\"\n")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), "not: [valid")
	writeFile(t, filepath.Join(dir, ".git", "config.yaml"), "not: [valid")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	src := NewFileSource(dir, nil)
	files, err := src.Files()
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "10_base.yaml"),
		filepath.Join(dir, "20_derived.yml"),
		filepath.Join(dir, "sub", "30_more.yaml"),
	}
	if !slices.Equal(files, want) {
		t.Errorf("Files() = %v, want %v", files, want)
	}

	reg, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reg.Names(); !slices.Equal(got, []string{"Base", "Doubled", "More", "doubled"}) {
		t.Errorf("Names() = %v", got)
	}
	a, _ := reg.Get("Doubled")
	b, _ := reg.Get("doubled")
	if a == nil || a != b {
		t.Error("alias must share the declared function")
	}
}

func TestFileSourceLoadSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votings.yaml")
	writeFile(t, path, baseDoc)

	reg, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := reg.Get("Base"); !ok {
		t.Error("Base not registered")
	}
}

func TestFileSourceEmptyPath(t *testing.T) {
	reg, err := NewFileSource("", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestFileSourceErrors(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		wantFile  string
		wantIndex int
		wantErr   error
	}{
		{
			name:      "forward reference across files",
			files:     map[string]string{"a.yaml": derivedDoc, "b.yaml": baseDoc},
			wantFile:  "a.yaml",
			wantIndex: 0,
		},
		{
			name: "second entry broken",
			files: map[string]string{"a.yaml": `votings:
  - source: "declare One { global: 1 }"
  - source: "declare Two { global: }"
`},
			wantFile:  "a.yaml",
			wantIndex: 1,
		},
		{
			name:      "empty source",
			files:     map[string]string{"a.yaml": "votings:\n  - alias: x\n"},
			wantFile:  "a.yaml",
			wantIndex: 0,
			wantErr:   ErrEmptySource,
		},
		{
			name:      "duplicate across files",
			files:     map[string]string{"a.yaml": baseDoc, "b.yaml": baseDoc},
			wantFile:  "b.yaml",
			wantIndex: 0,
			wantErr:   registry.ErrAlreadyRegistered,
		},
		{
			name:      "build-in name",
			files:     map[string]string{"a.yaml": "votings:\n  - source: \"declare CombSum { global: 1 }\"\n"},
			wantFile:  "a.yaml",
			wantIndex: 0,
			wantErr:   registry.ErrBuildInNotRegistrable,
		},
		{
			name:      "unknown key",
			files:     map[string]string{"a.yaml": "votes:\n  - source: x\n"},
			wantFile:  "a.yaml",
			wantIndex: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, name), content)
			}

			_, err := NewFileSource(dir, nil).Load(context.Background())
			var de *DefinitionError
			if !errors.As(err, &de) {
				t.Fatalf("Load() error = %v, want DefinitionError", err)
			}
			if de.File != filepath.Join(dir, tt.wantFile) || de.Index != tt.wantIndex {
				t.Errorf("error at %s #%d, want %s #%d", de.File, de.Index, tt.wantFile, tt.wantIndex)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileSourceMissingPath(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing"), nil).Load(context.Background())
	if err == nil {
		t.Error("Load() on a missing path should fail")
	}
}

func TestParseDocumentEmpty(t *testing.T) {
	doc, err := ParseDocument(nil, "empty.yaml")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Votings) != 0 {
		t.Errorf("Votings = %v, want none", doc.Votings)
	}
}
