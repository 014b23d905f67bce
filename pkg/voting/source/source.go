package source

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/voting/registry"
)

// Source produces registries from voting definitions.
type Source interface {
	// Load reads all definitions into a new registry.
	Load(ctx context.Context) (*registry.Registry, error)

	// Watch blocks until ctx is cancelled, calling onChange whenever the
	// definitions may have changed.
	Watch(ctx context.Context, onChange func() error) error

	// String describes the source for logs.
	String() string
}

// New creates the source selected by cfg.Mode.
func New(cfg *config.VotingConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Mode {
	case "file", "":
		return NewFileSource(cfg.Path, logger).WithDebounce(cfg.Debounce), nil
	case "git":
		return NewGitSource(&cfg.Git, logger)
	default:
		return nil, fmt.Errorf("unknown voting source mode %q", cfg.Mode)
	}
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*GitSource)(nil)
)
