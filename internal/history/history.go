// Package history persists a record of every pipeline run in a local SQLite
// database so watch mode and operators can inspect recent outcomes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run summarizes one pipeline execution.
type Run struct {
	ID              string
	Started         time.Time
	Duration        time.Duration
	Outcome         string // success|failed|canceled
	FilesCopied     int
	ImagesConverted int
	FilesMinified   int
	Warnings        int
}

// Summary renders the run as a single log-friendly line.
func (r Run) Summary() string {
	return fmt.Sprintf("%s in %s (%d copied, %d converted, %d minified, %d warnings)",
		r.Outcome, r.Duration.Round(time.Millisecond),
		r.FilesCopied, r.ImagesConverted, r.FilesMinified, r.Warnings)
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or opens) the history database at dbPath, creating parent
// directories as needed. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		files_copied INTEGER NOT NULL,
		images_converted INTEGER NOT NULL,
		files_minified INTEGER NOT NULL,
		warnings INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records a completed run.
func (s *Store) Append(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started, duration_ms, outcome, files_copied, images_converted, files_minified, warnings) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Started.Unix(), r.Duration.Milliseconds(), r.Outcome,
		r.FilesCopied, r.ImagesConverted, r.FilesMinified, r.Warnings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started, duration_ms, outcome, files_copied, images_converted, files_minified, warnings FROM runs ORDER BY started DESC, id LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, durationMS int64
		if err := rows.Scan(&r.ID, &started, &durationMS, &r.Outcome,
			&r.FilesCopied, &r.ImagesConverted, &r.FilesMinified, &r.Warnings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Started = time.Unix(started, 0)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
