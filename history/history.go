// Package history keeps a log of received reports in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultLimit is the number of entries Recent returns for a zero limit.
const DefaultLimit = 10

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history closed")

// Entry is one received report.
type Entry struct {
	ID         uuid.UUID
	Message    string
	Kind       string
	Display    string
	Lat        *float64
	Lng        *float64
	Fallback   bool
	ReceivedAt time.Time
}

// Store is a SQLite backed report log.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	createReportsTable := `
    CREATE TABLE IF NOT EXISTS reports (
        id TEXT PRIMARY KEY,
        message TEXT NOT NULL,
        kind TEXT NOT NULL,
        display TEXT NOT NULL,
        lat REAL,
        lng REAL,
        fallback INTEGER NOT NULL DEFAULT 0,
        received_at INTEGER NOT NULL
    );
    `
	createIndex := `CREATE INDEX IF NOT EXISTS reports_received_at ON reports (received_at);`

	if _, err := db.Exec(createReportsTable); err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}
	if _, err := db.Exec(createIndex); err != nil {
		return fmt.Errorf("create reports index: %w", err)
	}
	return nil
}

// Record stores e. A zero ID is replaced with a new UUID and a zero
// ReceivedAt with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Entry{}, ErrClosed
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reports (id, message, kind, display, lat, lng, fallback, received_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID.String(), e.Message, e.Kind, e.Display, nullFloat(e.Lat), nullFloat(e.Lng), e.Fallback, e.ReceivedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("insert report: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, kind, display, lat, lng, fallback, received_at
		FROM reports
		ORDER BY received_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			id       string
			lat, lng sql.NullFloat64
			nanos    int64
		)
		if err := rows.Scan(&id, &e.Message, &e.Kind, &e.Display, &lat, &lng, &e.Fallback, &nanos); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse report id %q: %w", id, err)
		}
		if lat.Valid {
			e.Lat = &lat.Float64
		}
		if lng.Valid {
			e.Lng = &lng.Float64
		}
		e.ReceivedAt = time.Unix(0, nanos)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return entries, nil
}

// Close closes the database. Closing twice returns ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
