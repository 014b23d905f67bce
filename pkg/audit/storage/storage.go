// Package storage provides the audit record backends.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
)

// New opens the backend selected by cfg.Backend. The SQLite database
// directory is created if missing.
func New(cfg *config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, audit.NewStorageError(backendSQLite, "mkdir", err)
			}
		}
		return NewSQLiteStorage(&cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}
