package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// SQLiteStore persists tokens in a local cookie jar so the CLI survives restarts.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *zerolog.Logger
}

func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cookie store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie store: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cookie store: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cookies (
            name TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at DATETIME
        )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cookies table: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Debug().Str("path", path).Msg("Cookie store opened")

	return &SQLiteStore{db: db, now: time.Now, logger: logger}, nil
}

func (s *SQLiteStore) GetToken(ctx context.Context, key string) (string, error) {
	var (
		value     string
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cookies WHERE name = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cookie %s: %w", key, err)
	}

	if expiresAt.Valid && !s.now().Before(expiresAt.Time) {
		s.logger.Debug().Str("cookie", key).Msg("Cookie expired")
		if err := s.ClearToken(ctx, key); err != nil {
			return "", err
		}
		return "", nil
	}
	return value, nil
}

func (s *SQLiteStore) SetToken(ctx context.Context, key, token string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl).UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO cookies (name, value, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
    `, key, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write cookie %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ClearToken(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE name = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cookie %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
