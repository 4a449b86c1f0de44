package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id  TEXT NOT NULL UNIQUE,
	title    TEXT NOT NULL,
	list     TEXT NOT NULL,
	saved_at INTEGER NOT NULL
);`

// SQLiteStore keeps the watchlist in a SQLite table. Insertion order gives
// the newest-first ordering.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("watchlist: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("watchlist: open database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("watchlist: init database: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id, title, list, saved_at FROM watchlist ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("watchlist: query: %w", err)
	}
	defer rows.Close()

	list := []Entry{}
	for rows.Next() {
		var e Entry
		var savedAt int64
		if err := rows.Scan(&e.BookID, &e.Title, &e.List, &savedAt); err != nil {
			return nil, fmt.Errorf("watchlist: scan: %w", err)
		}
		e.SavedAt = time.UnixMilli(savedAt)
		list = append(list, e)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, e Entry) ([]Entry, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (book_id, title, list, saved_at) VALUES (?, ?, ?, ?)`,
		e.BookID, e.Title, e.List, e.SavedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("watchlist: insert: %w", err)
	}
	return s.Get(ctx)
}

func (s *SQLiteStore) Remove(ctx context.Context, bookID string) ([]Entry, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE book_id = ?`, bookID); err != nil {
		return nil, fmt.Errorf("watchlist: delete: %w", err)
	}
	return s.Get(ctx)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("watchlist: clear: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
