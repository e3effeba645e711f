package database

import (
	"context"
	"database/sql"
	"fmt"

	"horus-go/internal/database/migrations"
	"horus-go/internal/horus"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation statuses written by FinishOperation callers.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// SQLiteJournal implements horus.Journal on a local SQLite file.
type SQLiteJournal struct {
	db    *sql.DB
	path  string
	clock horus.Clock
}

// NewSQLiteJournal opens the journal at path and brings its schema up to
// date. path can be a file path or ":memory:".
func NewSQLiteJournal(path string, clock horus.Clock) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal %s: %w", path, err)
	}
	if clock == nil {
		clock = horus.RealClock{}
	}
	return &SQLiteJournal{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; one connection keeps a
	// single journal for the whole process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (s *SQLiteJournal) CreateOperation(operation, parameters string) (*horus.Operation, error) {
	started := s.clock.Now().UTC()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)`,
		operation, parameters, started, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &horus.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusRunning,
		StartedAt:  started,
	}, nil
}

func (s *SQLiteJournal) FinishOperation(id int64, status string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		s.clock.Now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: operation %d", horus.ErrNotFound, id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteJournal) ListOperations(limit int) ([]*horus.Operation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, operation, parameters, started_at, finished_at, status
		   FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*horus.Operation
	for rows.Next() {
		var (
			op       horus.Operation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finished, &op.Status); err != nil {
			return nil, fmt.Errorf("listing operations: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteJournal implements horus.Journal
var _ horus.Journal = (*SQLiteJournal)(nil)
