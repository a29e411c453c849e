package bookmark

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pulsepipe/ingest/internal/bookmark/normalize"
)

// SQLiteStore is a standalone bookmark database, independent of the main
// tracking persistence provider — the original Python store opens its own
// sqlite file rather than sharing the tracking database's connection.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if absent) the bookmark database at
// dbPath, creating parent directories as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bookmark: create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("bookmark: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS bookmarks (
		path TEXT PRIMARY KEY,
		status TEXT,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("bookmark: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, path string) (bool, error) {
	path = normalize.Path(path)
	var dummy int
	err := s.db.GetContext(ctx, &dummy, `SELECT 1 FROM bookmarks WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bookmark: is processed: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, path, status string) error {
	path = normalize.Path(path)
	if status == "" {
		status = "processed"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bookmarks (path, status, processed_at) VALUES (?, ?, ?)`,
		path, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bookmark: mark processed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]string, error) {
	var paths []string
	if err := s.db.SelectContext(ctx, &paths, `SELECT path FROM bookmarks ORDER BY path`); err != nil {
		return nil, fmt.Errorf("bookmark: get all: %w", err)
	}
	return paths, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks`)
	if err != nil {
		return 0, fmt.Errorf("bookmark: clear all: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)
