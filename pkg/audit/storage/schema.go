package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Times are stored as Unix nanoseconds (UTC) so both drivers compare and
// scan them identically.
const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    evaluation_id TEXT NOT NULL,

    voting TEXT NOT NULL,
    voting_name TEXT NOT NULL,
    voting_hash TEXT NOT NULL,
    registry_version TEXT NOT NULL,
    labels TEXT,

    voter_count INTEGER NOT NULL,
    voter_limit INTEGER NOT NULL,

    result TEXT NOT NULL,
    score REAL,
    fallback BOOLEAN NOT NULL,
    error TEXT,
    error_type TEXT,

    duration_ns INTEGER NOT NULL,
    evaluated_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_evaluated_at ON audit_records(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_audit_voting_name ON audit_records(voting_name);
CREATE INDEX IF NOT EXISTS idx_audit_voting_hash ON audit_records(voting_hash);
CREATE INDEX IF NOT EXISTS idx_audit_evaluation_id ON audit_records(evaluation_id);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`

const recordColumns = `id, evaluation_id,
    voting, voting_name, voting_hash, registry_version, labels,
    voter_count, voter_limit,
    result, score, fallback, error, error_type,
    duration_ns, evaluated_at, recorded_at`
