// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records completed formatting runs in a SQLite
// database so earlier sessions stay inspectable.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "history.db"

// Run is one completed formatting session.
type Run struct {
	ID          string
	SourceID    string
	StartedAt   time.Time
	CompletedAt time.Time
	Chunks      int
	Failures    int
	State       string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at dir/history.db,
// creating the schema if it does not exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		state TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// RecordRun inserts a completed run. An empty ID is assigned a fresh
// UUID; the assigned ID is returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_id, started_at, completed_at, chunks, failures, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.CompletedAt.UTC().Format(time.RFC3339Nano),
		run.Chunks, run.Failures, run.State)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, started_at, completed_at, chunks, failures, state
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, completed string
		if err := rows.Scan(&r.ID, &r.SourceID, &started, &completed, &r.Chunks, &r.Failures, &r.State); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at %q: %w", started, err)
		}
		if r.CompletedAt, err = time.Parse(time.RFC3339Nano, completed); err != nil {
			return nil, fmt.Errorf("parsing completed_at %q: %w", completed, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
