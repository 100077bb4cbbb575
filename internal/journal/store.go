// Package journal persists finished batch reports to SQLite so past runs can
// be inspected with the history command.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Slynchy/webp-conv/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed batch history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBatch writes a resolved report and all its item outcomes in one
// transaction.
func (s *Store) RecordBatch(report *domain.BatchReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO batches (id, input_dir, output_dir, dry_run, started_at, finished_at,
			total, succeeded, warned, skipped, failed, input_bytes, output_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.InputDir,
		report.OutputDir,
		report.DryRun,
		report.StartedAt,
		report.FinishedAt,
		report.Total(),
		report.Succeeded,
		report.Warned,
		report.Skipped,
		report.Failed,
		report.InputBytes,
		report.OutputBytes,
	)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", report.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO items (batch_id, name, status, failure, exit_code, detail, duration_ms, input_bytes, output_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range report.Outcomes {
		_, err := stmt.Exec(
			report.ID,
			o.Item.Name,
			string(o.Status),
			string(o.Failure),
			o.ExitCode,
			o.Detail,
			o.Duration.Milliseconds(),
			o.InputBytes,
			o.OutputBytes,
		)
		if err != nil {
			return fmt.Errorf("inserting item %s: %w", o.Item.Name, err)
		}
	}

	return tx.Commit()
}

// BatchSummary is one row of batch history.
type BatchSummary struct {
	ID         string
	InputDir   string
	OutputDir  string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Warned     int
	Skipped    int
	Failed     int

	InputBytes  int64
	OutputBytes int64
}

// RecentBatches returns up to limit batches, newest first.
func (s *Store) RecentBatches(limit int) ([]BatchSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, input_dir, output_dir, dry_run, started_at, finished_at,
			total, succeeded, warned, skipped, failed, input_bytes, output_bytes
		FROM batches
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []BatchSummary
	for rows.Next() {
		var b BatchSummary
		err := rows.Scan(&b.ID, &b.InputDir, &b.OutputDir, &b.DryRun, &b.StartedAt, &b.FinishedAt,
			&b.Total, &b.Succeeded, &b.Warned, &b.Skipped, &b.Failed, &b.InputBytes, &b.OutputBytes)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// ItemRecord is one persisted item outcome.
type ItemRecord struct {
	Name       string
	Status     string
	Failure    string
	ExitCode   int
	Detail     string
	DurationMs int64

	InputBytes  int64
	OutputBytes int64
}

// Items returns the outcomes recorded for one batch, in insertion order.
func (s *Store) Items(batchID string) ([]ItemRecord, error) {
	rows, err := s.db.Query(`
		SELECT name, status, failure, exit_code, detail, duration_ms, input_bytes, output_bytes
		FROM items
		WHERE batch_id = ?
		ORDER BY id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		err := rows.Scan(&it.Name, &it.Status, &it.Failure, &it.ExitCode, &it.Detail, &it.DurationMs, &it.InputBytes, &it.OutputBytes)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
