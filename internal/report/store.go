// Package report persists conversion ledgers in SQLite so runs can be
// listed and inspected after the fact.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sdmeta/internal/fileutil"
	"sdmeta/internal/pipeline"
)

// ErrNotFound reports an unknown or ambiguous run identifier.
var ErrNotFound = errors.New("run not found")

// Store manages report persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one persisted conversion run.
type Run struct {
	ID         string           `json:"id"`
	Root       string           `json:"root"`
	Format     string           `json:"format"`
	Layout     string           `json:"layout"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Summary    pipeline.Summary `json:"summary"`
}

// Open initializes or connects to the report database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SaveRun writes the ledger and all of its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, ledger *pipeline.Ledger) error {
	if ledger == nil || ledger.RunID == "" {
		return errors.New("save run: ledger has no run id")
	}
	summary := ledger.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, root, format, layout, started_at, finished_at,
            total, succeeded, failed, inconsistent, bytes_written
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ledger.RunID,
		ledger.Root,
		ledger.Format.String(),
		ledger.Layout.String(),
		formatTime(ledger.Started),
		formatTime(ledger.Finished),
		summary.Total,
		summary.Succeeded,
		summary.Failed,
		summary.Inconsistent,
		summary.BytesWritten,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (
            run_id, source_path, dest_path, original_text, reextracted_text,
            consistent, succeeded, error, bytes_written, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ledger.Results() {
		if _, err := stmt.ExecContext(ctx,
			ledger.RunID,
			r.SourcePath,
			nullableString(r.DestPath),
			r.OriginalFlattened,
			r.ReextractedFlattened,
			boolToInt(r.Consistent),
			boolToInt(r.Succeeded),
			nullableString(r.Error),
			r.BytesWritten,
			r.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert result for %s: %w", r.SourcePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, root, format, layout, started_at, finished_at,
        total, succeeded, failed, inconsistent, bytes_written
        FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run id or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, format, layout, started_at, finished_at,
            total, succeeded, failed, inconsistent, bytes_written
        FROM runs WHERE id = ? OR id LIKE ? || '%' ORDER BY id LIMIT 2`,
		idOrPrefix, idOrPrefix)
	if err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: prefix %q is ambiguous", ErrNotFound, idOrPrefix)
	}
}

// Results returns the ledger rows of a run ordered by source path.
func (s *Store) Results(ctx context.Context, runID string) ([]pipeline.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, dest_path, original_text, reextracted_text,
            consistent, succeeded, error, bytes_written, duration_ms
        FROM results WHERE run_id = ? ORDER BY source_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []pipeline.Result
	for rows.Next() {
		var (
			r          pipeline.Result
			dest, errs sql.NullString
			consistent int
			succeeded  int
			durationMS int64
		)
		if err := rows.Scan(&r.SourcePath, &dest, &r.OriginalFlattened, &r.ReextractedFlattened,
			&consistent, &succeeded, &errs, &r.BytesWritten, &durationMS); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.DestPath = dest.String
		r.Error = errs.String
		r.Consistent = consistent != 0
		r.Succeeded = succeeded != 0
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, finished string
	if err := row.Scan(&run.ID, &run.Root, &run.Format, &run.Layout, &started, &finished,
		&run.Summary.Total, &run.Summary.Succeeded, &run.Summary.Failed,
		&run.Summary.Inconsistent, &run.Summary.BytesWritten); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
