// Package store persists the monitor's last-seen marker so a restart does not
// answer the newest mention a second time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.MarkerStore. It keeps one row per chat.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS markers (
		chat       TEXT PRIMARY KEY,
		last_seen  TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// LoadMarker returns "" when nothing has been answered in chat yet.
func (s *SQLiteStore) LoadMarker(ctx context.Context, chat string) (string, error) {
	var last string
	err := s.db.QueryRowContext(ctx, `SELECT last_seen FROM markers WHERE chat = ?`, chat).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load marker: %w", err)
	}
	return last, nil
}

func (s *SQLiteStore) SaveMarker(ctx context.Context, chat, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO markers (chat, last_seen, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat) DO UPDATE SET last_seen = excluded.last_seen, updated_at = excluded.updated_at`,
		chat, text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save marker: %w", err)
	}
	s.logger.Debug("marker saved", "chat", chat)
	return nil
}

// Ping verifies the database is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
