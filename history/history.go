// Package history records the outcome of every processed application in a
// SQLite database so past runs can be inspected with `autopkg history`.
package history

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs_v1 (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	application TEXT NOT NULL,
	outcome TEXT NOT NULL,
	current_version TEXT NOT NULL,
	new_version TEXT NOT NULL,
	artifact TEXT NOT NULL,
	error TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
)
`

const insertSql = `
INSERT INTO runs_v1 (run_id, application, outcome, current_version, new_version, artifact, error, recorded_at)
VALUES (:run_id, :application, :outcome, :current_version, :new_version, :artifact, :error, :recorded_at)
`

// Entry is one processed application.
type Entry struct {
	ID             int64     `db:"id"`
	RunID          string    `db:"run_id"`
	Application    string    `db:"application"`
	Outcome        string    `db:"outcome"`
	CurrentVersion string    `db:"current_version"`
	NewVersion     string    `db:"new_version"`
	Artifact       string    `db:"artifact"`
	Error          string    `db:"error"`
	RecordedAt     time.Time `db:"recorded_at"`
}

type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history database %s", path)
	}
	// One writer per process; serialize access to the file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create history schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e. A zero RecordedAt is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	if _, err := s.db.NamedExecContext(ctx, insertSql, e); err != nil {
		return errors.Wrapf(err, "failed to record history for %s", e.Application)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, run_id, application, outcome, current_version, new_version, artifact, error, recorded_at
		FROM runs_v1
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read history")
	}
	return entries, nil
}
