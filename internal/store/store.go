// Package store is the asynchronous, transactional object-store tier: named
// namespaces of keyed records in SQLite. It also keeps the run log that makes
// one-shot migrations skippable.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides access to the object-store database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		namespace   TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       BLOB NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		PRIMARY KEY (namespace, key)
	);

	CREATE TABLE IF NOT EXISTS migration_runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'running',
		total       INTEGER NOT NULL DEFAULT 0,
		migrated    INTEGER NOT NULL DEFAULT 0,
		started_at  DATETIME NOT NULL,
		ended_at    DATETIME
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before failure counts were tracked lack this column.
	return s.addColumnIfMissing("migration_runs", "failed", "INTEGER NOT NULL DEFAULT 0")
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) error {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	found := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s columns: %w", table, err)
		}
		if name == column {
			found = true
		}
	}
	rows.Close()
	if found {
		return nil
	}

	if _, err := s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Put writes value under (namespace, key) in its own transaction. An
// existing record is overwritten and keeps its creation time.
func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	if namespace == "" || key == "" {
		return fmt.Errorf("put: namespace and key are required")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (namespace, key, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get returns a single record.
func (s *Store) Get(ctx context.Context, namespace, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT namespace, key, value, created_at, updated_at
		 FROM records WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	var r Record
	err := row.Scan(&r.Namespace, &r.Key, &r.Value, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return &r, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns every record in a namespace ordered by key.
func (s *Store) List(ctx context.Context, namespace string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, key, value, created_at, updated_at
		 FROM records WHERE namespace = ? ORDER BY key`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Namespace, &r.Key, &r.Value, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of records in a namespace.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE namespace = ?`, namespace,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", namespace, err)
	}
	return n, nil
}

// Namespaces returns every namespace that holds at least one record.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT namespace FROM records ORDER BY namespace`,
	)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// --- Migration run tracking ---

// StartRun records a new run of the named migration.
func (s *Store) StartRun(ctx context.Context, name string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_runs (name, status, started_at) VALUES (?, ?, ?)`,
		name, string(RunRunning), now,
	)
	if err != nil {
		return 0, fmt.Errorf("start migration run: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// EndRun records the outcome of a run.
func (s *Store) EndRun(ctx context.Context, runID int64, out RunOutcome) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE migration_runs
		 SET status = ?, total = ?, migrated = ?, failed = ?, ended_at = ?
		 WHERE id = ?`,
		string(out.Status), out.Total, out.Migrated, out.Failed, now, runID,
	)
	if err != nil {
		return fmt.Errorf("end migration run: %w", err)
	}
	return nil
}

const runColumns = `id, name, status, total, migrated, failed, started_at, ended_at`

// LastRun returns the most recent run of the named migration, or nil if it
// has never run.
func (s *Store) LastRun(ctx context.Context, name string) (*MigrationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM migration_runs
		 WHERE name = ? ORDER BY id DESC LIMIT 1`, name,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last migration run: %w", err)
	}
	return r, nil
}

// ListRuns returns every recorded run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]MigrationRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM migration_runs ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list migration runs: %w", err)
	}
	defer rows.Close()

	var runs []MigrationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan migration run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*MigrationRun, error) {
	var r MigrationRun
	var status string
	var endedAt sql.NullTime
	err := row.Scan(&r.ID, &r.Name, &status, &r.Total, &r.Migrated, &r.Failed, &r.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if endedAt.Valid {
		r.EndedAt = endedAt.Time
	}
	return &r, nil
}
