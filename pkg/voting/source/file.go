package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"mercator-hq/ldatranslate/pkg/voting/registry"
)

// Extensions lists the file extensions read as definition files.
var Extensions = []string{".yaml", ".yml"}

// FileSource loads voting definitions from YAML files on disk.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileSource creates a file-based source. The path can be a single file
// or a directory; directories are walked recursively in lexical order.
// An empty path yields an empty registry.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:     path,
		debounce: DefaultDebounce,
		logger:   logger.With("component", "voting.source"),
	}
}

// WithDebounce sets the quiet period used by Watch.
func (s *FileSource) WithDebounce(d time.Duration) *FileSource {
	s.debounce = d
	return s
}

// Load reads every definition file into a fresh registry, so definitions
// may execute votings declared earlier in the same or a preceding file.
func (s *FileSource) Load(ctx context.Context) (*registry.Registry, error) {
	reg := registry.New()
	if s.path == "" {
		return reg, nil
	}

	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := loadFile(reg, file); err != nil {
			return nil, err
		}
	}

	s.logger.Info("loaded votings from source",
		"path", s.path,
		"files", len(files),
		"votings", reg.Len(),
		"version", reg.Version(),
	)
	return reg, nil
}

// Files returns the definition files under the configured path in load order.
func (s *FileSource) Files() ([]string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}
	if !info.IsDir() {
		return []string{s.path}, nil
	}
	return listDefinitionFiles(s.path)
}

// Watch reloads on file changes until ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context, onChange func() error) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := NewWatcher(&WatcherConfig{
		Path:       s.path,
		Debounce:   s.debounce,
		Extensions: Extensions,
		SkipHidden: true,
	}, s.logger)
	if err != nil {
		return err
	}
	defer w.Stop()
	return w.Watch(ctx, onChange)
}

// String describes the source for logs.
func (s *FileSource) String() string {
	return "file:" + s.path
}

func loadFile(reg *registry.Registry, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return &DefinitionError{File: file, Index: -1, Err: err}
	}
	doc, err := ParseDocument(data, file)
	if err != nil {
		return err
	}
	return doc.Register(reg, file)
}

// listDefinitionFiles walks dir, skipping hidden entries. WalkDir visits
// entries in lexical order, which fixes the registration order.
func listDefinitionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && hasExtension(path, Extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", dir, err)
	}
	return files, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}
