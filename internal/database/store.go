package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/idrecon/idrecon/internal/model"
)

// Store provides SQLite-based persistence for queries, their tasks, and
// the merged entity sets.
//
// Design decision: We use a single database file for all queries rather
// than one file per query. This keeps cross-query lookups (history,
// listing) in plain SQL and simplifies backup/restore operations.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "idrecon.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn under concurrent task persistence.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Queries store the lifecycle state of each submitted query
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		status TEXT NOT NULL,
		failure_reason TEXT,
		options_json TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_queries_type ON queries(type);
	CREATE INDEX IF NOT EXISTS idx_queries_created ON queries(created_at);

	-- Tasks store the per-scanner breakdown of each query
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		query_id TEXT NOT NULL,
		scanner TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT,
		error_message TEXT,
		attempts INTEGER DEFAULT 0,
		latency_ms INTEGER DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_query ON tasks(query_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_scanner ON tasks(scanner);

	-- Entities store the merged clusters as JSON, one row per entity
	CREATE TABLE IF NOT EXISTS entities (
		entity_id TEXT PRIMARY KEY,
		query_id TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		entity_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entities_query ON entities(query_id);

	-- Excluded records keep provenance for everything left out of entities
	CREATE TABLE IF NOT EXISTS excluded_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		record_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_excluded_query ON excluded_records(query_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveQueryState inserts or updates the query's lifecycle state.
func (s *Store) SaveQueryState(ctx context.Context, q *model.Query) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("failed to serialize options: %w", err)
	}

	query := `
	INSERT INTO queries (id, type, value, status, failure_reason, options_json, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		failure_reason = excluded.failure_reason,
		completed_at = excluded.completed_at
	`

	var completedAt any
	if !q.CompletedAt.IsZero() {
		completedAt = q.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, query,
		q.ID,
		string(q.Type),
		q.Value,
		q.Status.String(),
		q.FailureReason,
		string(optionsJSON),
		q.CreatedAt.UTC().Format(time.RFC3339Nano),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save query state: %w", err)
	}

	return nil
}

// SaveTasks replaces the stored task breakdown for a query.
func (s *Store) SaveTasks(ctx context.Context, queryID string, tasks []*model.ScannerTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE query_id = ?", queryID); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	insert := `
	INSERT INTO tasks (id, query_id, scanner, status, error_kind, error_message, attempts, latency_ms, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, task := range tasks {
		var startedAt, finishedAt any
		if !task.StartedAt.IsZero() {
			startedAt = task.StartedAt.UTC().Format(time.RFC3339Nano)
		}
		if !task.FinishedAt.IsZero() {
			finishedAt = task.FinishedAt.UTC().Format(time.RFC3339Nano)
		}

		_, err := tx.ExecContext(ctx, insert,
			task.ID,
			queryID,
			task.Scanner,
			task.Status.String(),
			string(task.ErrorKind),
			task.ErrorMessage,
			task.Attempts,
			task.Latency.Milliseconds(),
			startedAt,
			finishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}

	return tx.Commit()
}

// SaveEntities replaces the stored entity set for a query.
func (s *Store) SaveEntities(ctx context.Context, queryID string, set *model.EntitySet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE query_id = ?", queryID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM excluded_records WHERE query_id = ?", queryID); err != nil {
		return fmt.Errorf("failed to clear excluded records: %w", err)
	}

	for _, ent := range set.Entities {
		entityJSON, err := json.Marshal(ent)
		if err != nil {
			return fmt.Errorf("failed to serialize entity: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO entities (entity_id, query_id, confidence, entity_json) VALUES (?, ?, ?, ?)",
			ent.ID, queryID, ent.Confidence, string(entityJSON))
		if err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}
	}

	for _, excl := range set.Excluded {
		recordJSON, err := json.Marshal(excl.Record)
		if err != nil {
			return fmt.Errorf("failed to serialize excluded record: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO excluded_records (query_id, reason, record_json) VALUES (?, ?, ?)",
			queryID, excl.Reason, string(recordJSON))
		if err != nil {
			return fmt.Errorf("failed to insert excluded record: %w", err)
		}
	}

	return tx.Commit()
}

// LoadResult rebuilds the full result view of a stored query.
// Returns nil when the query is unknown.
func (s *Store) LoadResult(ctx context.Context, queryID string) (*model.Result, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT type, value, status, failure_reason, created_at, completed_at
	FROM queries WHERE id = ?
	`, queryID)

	var (
		qType, value, status string
		failureReason        sql.NullString
		createdAt            string
		completedAt          sql.NullString
	)
	err := row.Scan(&qType, &value, &status, &failureReason, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	res := &model.Result{
		QueryID:       queryID,
		Type:          model.QueryType(qType),
		Value:         value,
		Status:        parseQueryStatus(status),
		FailureReason: failureReason.String,
		CreatedAt:     parseTimestamp(createdAt),
	}
	if completedAt.Valid {
		res.CompletedAt = parseTimestamp(completedAt.String)
	}

	if res.Entities, err = s.loadEntities(ctx, queryID); err != nil {
		return nil, err
	}
	if res.Excluded, err = s.loadExcluded(ctx, queryID); err != nil {
		return nil, err
	}
	if res.Scanners, err = s.loadOutcomes(ctx, queryID); err != nil {
		return nil, err
	}

	return res, nil
}

// ListQueries returns summary metadata for all stored queries, newest
// first.
func (s *Store) ListQueries(ctx context.Context) ([]QueryMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, type, value, status, created_at
	FROM queries ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var results []QueryMetadata
	for rows.Next() {
		var meta QueryMetadata
		var qType, status, createdAt string
		if err := rows.Scan(&meta.ID, &qType, &meta.Value, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan query metadata: %w", err)
		}
		meta.Type = model.QueryType(qType)
		meta.Status = parseQueryStatus(status)
		meta.CreatedAt = parseTimestamp(createdAt)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// QueryMetadata contains summary information about a stored query.
// This is used for listing history without loading full results.
type QueryMetadata struct {
	// ID is the query identifier.
	ID string

	// Type is the query type.
	Type model.QueryType

	// Value is the raw query value.
	Value string

	// Status is the stored lifecycle state.
	Status model.QueryStatus

	// CreatedAt is when the query was accepted.
	CreatedAt time.Time
}

func (s *Store) loadEntities(ctx context.Context, queryID string) ([]*model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT entity_json FROM entities
	WHERE query_id = ? ORDER BY confidence DESC
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		var entityJSON string
		if err := rows.Scan(&entityJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		var ent model.Entity
		if err := json.Unmarshal([]byte(entityJSON), &ent); err != nil {
			continue // Skip malformed rows
		}
		entities = append(entities, &ent)
	}

	return entities, rows.Err()
}

func (s *Store) loadExcluded(ctx context.Context, queryID string) ([]model.ExcludedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT reason, record_json FROM excluded_records WHERE query_id = ?
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load excluded records: %w", err)
	}
	defer rows.Close()

	var excluded []model.ExcludedRecord
	for rows.Next() {
		var reason, recordJSON string
		if err := rows.Scan(&reason, &recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan excluded record: %w", err)
		}
		var rec model.NormalizedRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue // Skip malformed rows
		}
		excluded = append(excluded, model.ExcludedRecord{Record: &rec, Reason: reason})
	}

	return excluded, rows.Err()
}

func (s *Store) loadOutcomes(ctx context.Context, queryID string) ([]model.ScannerOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT scanner, status, error_kind, attempts, latency_ms
	FROM tasks WHERE query_id = ? ORDER BY scanner
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var outcomes []model.ScannerOutcome
	for rows.Next() {
		var out model.ScannerOutcome
		var status, errorKind string
		var latencyMS int64
		if err := rows.Scan(&out.Scanner, &status, &errorKind, &out.Attempts, &latencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out.Status = parseTaskStatus(status)
		out.ErrorKind = model.ErrorKind(errorKind)
		out.Latency = time.Duration(latencyMS) * time.Millisecond
		outcomes = append(outcomes, out)
	}

	return outcomes, rows.Err()
}

// parseQueryStatus reverses model.QueryStatus.String().
func parseQueryStatus(s string) model.QueryStatus {
	for _, status := range []model.QueryStatus{
		model.StatusSubmitted, model.StatusDispatching, model.StatusRunning,
		model.StatusFinalizing, model.StatusPartialComplete, model.StatusComplete,
		model.StatusFailed,
	} {
		if status.String() == s {
			return status
		}
	}
	return model.StatusSubmitted
}

// parseTaskStatus reverses model.TaskStatus.String().
func parseTaskStatus(s string) model.TaskStatus {
	for _, status := range []model.TaskStatus{
		model.TaskPending, model.TaskRunning, model.TaskSucceeded,
		model.TaskFailed, model.TaskTimeout, model.TaskSkipped,
		model.TaskAbandoned,
	} {
		if status.String() == s {
			return status
		}
	}
	return model.TaskPending
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // What SaveQueryState writes
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
