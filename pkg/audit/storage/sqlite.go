package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/config"
)

const backendSQLite = "sqlite"

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStorage(cfg *config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlite config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.storage.sqlite")

	driver := cfg.Driver
	if driver == "" {
		driver = config.DefaultAuditSQLiteDriver
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", driver,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError(backendSQLite, "enable_wal", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return audit.NewStorageError(backendSQLite, "set_busy_timeout", err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, r *audit.Record) error {
	var labels any
	if len(r.Labels) > 0 {
		data, err := json.Marshal(r.Labels)
		if err != nil {
			return audit.NewStorageError(backendSQLite, "store", err)
		}
		labels = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.EvaluationID,
		r.Voting, r.VotingName, r.VotingHash, r.RegistryVersion, labels,
		r.VoterCount, r.Limit,
		r.Result, nullFloat(r.Score), r.Fallback, nullString(r.Error), nullString(r.ErrorType),
		int64(r.Duration), r.EvaluatedTime.UnixNano(), r.RecordedTime.UnixNano(),
	)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "store", err)
	}
	return nil
}

// Query returns the records matching q.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhere(q)

	order := "DESC"
	if q.SortOrder == audit.SortAsc {
		order = "ASC"
	}
	stmt := "SELECT " + recordColumns + " FROM audit_records" + where +
		" ORDER BY evaluated_at " + order + ", id " + order
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	} else if q.Offset > 0 {
		stmt += fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	return records, nil
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhere(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&n); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return n, nil
}

// DeleteOlderThan removes records evaluated before cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_records WHERE evaluated_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	return n, nil
}

// DeleteOldest removes the n oldest records.
func (s *SQLiteStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_records WHERE id IN (
			SELECT id FROM audit_records ORDER BY evaluated_at ASC, id ASC LIMIT ?
		)`, n)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete_oldest", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete_oldest", err)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func buildWhere(q *audit.Query) (string, []any) {
	var conds []string
	var args []any

	if q.StartTime != nil {
		conds = append(conds, "evaluated_at >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conds = append(conds, "evaluated_at <= ?")
		args = append(args, q.EndTime.UnixNano())
	}
	if q.VotingName != "" {
		conds = append(conds, "voting_name = ?")
		args = append(args, q.VotingName)
	}
	if q.VotingHash != "" {
		conds = append(conds, "voting_hash = ?")
		args = append(args, q.VotingHash)
	}
	if q.EvaluationID != "" {
		conds = append(conds, "evaluation_id = ?")
		args = append(args, q.EvaluationID)
	}
	switch q.Status {
	case audit.StatusSuccess:
		conds = append(conds, "error IS NULL AND fallback = 0")
	case audit.StatusError:
		conds = append(conds, "error IS NOT NULL AND fallback = 0")
	case audit.StatusFallback:
		conds = append(conds, "fallback = 1")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		r                       audit.Record
		labels, errMsg, errType sql.NullString
		score                   sql.NullFloat64
		durationNs              int64
		evaluatedAt, recordedAt int64
	)
	err := rows.Scan(
		&r.ID, &r.EvaluationID,
		&r.Voting, &r.VotingName, &r.VotingHash, &r.RegistryVersion, &labels,
		&r.VoterCount, &r.Limit,
		&r.Result, &score, &r.Fallback, &errMsg, &errType,
		&durationNs, &evaluatedAt, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	if labels.Valid && labels.String != "" {
		if err := json.Unmarshal([]byte(labels.String), &r.Labels); err != nil {
			return nil, errors.Join(errors.New("decode labels"), err)
		}
	}
	if score.Valid {
		v := score.Float64
		r.Score = &v
	}
	r.Error = errMsg.String
	r.ErrorType = errType.String
	r.Duration = time.Duration(durationNs)
	r.EvaluatedTime = time.Unix(0, evaluatedAt).UTC()
	r.RecordedTime = time.Unix(0, recordedAt).UTC()
	return &r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

var _ audit.Storage = (*SQLiteStorage)(nil)
