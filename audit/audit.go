// Package audit persists an append-only log of executed invocations in a
// local SQLite database. Entries are never updated or deleted; the log
// answers "what did this tool do to the orchestrator, and when".
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded invocation.
type Entry struct {
	ID          string    // assigned by Record when empty
	CreatedAt   time.Time // assigned by Record when zero
	Instruction string
	Tool        string
	DagID       string
	RunID       string
	Outcome     string // "ok" or a failure classification
	Detail      string
}

// Log is an append-only invocation log backed by SQLite.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) the audit log at path.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		instruction TEXT NOT NULL,
		tool TEXT NOT NULL,
		dag_id TEXT,
		run_id TEXT,
		outcome TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one entry, assigning an ID and timestamp when the caller
// left them empty, and returns the entry as stored.
func (l *Log) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO invocations (id, created_at, instruction, tool, dag_id, run_id, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt, e.Instruction, e.Tool, e.DagID, e.RunID, e.Outcome, e.Detail,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: record: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, created_at, instruction, tool, dag_id, run_id, outcome, detail
		 FROM invocations ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dagID, runID, detail sql.NullString

		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Instruction, &e.Tool, &dagID, &runID, &e.Outcome, &detail); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.DagID = dagID.String
		e.RunID = runID.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return entries, nil
}
