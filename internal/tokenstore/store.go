// Package tokenstore persists per-platform OAuth token state in SQLite,
// per SPEC_FULL.md §3.1 and spec.md §6's "Persisted state layout".
package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no token record exists for a platform.
var ErrNotFound = errors.New("tokenstore: not found")

// Tokens is one platform's OAuth token state.
type Tokens struct {
	Platform     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Store persists Tokens in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("tokenstore: database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tokenstore: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open sqlite database: %w", err)
	}

	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("tokenstore: opened", "path", path)
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	platform TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("tokenstore: run migrations: %w", err)
	}
	slog.Debug("tokenstore: migrations applied")
	return nil
}

// Put upserts the token state for t.Platform. UpdatedAt is stamped at
// call time.
func (s *Store) Put(ctx context.Context, t Tokens) error {
	if strings.TrimSpace(t.Platform) == "" {
		return fmt.Errorf("tokenstore: platform is required")
	}
	t.UpdatedAt = time.Now().UTC()

	const q = `
INSERT INTO tokens (platform, access_token, refresh_token, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(platform) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at
`
	_, err := s.db.ExecContext(ctx, q,
		t.Platform,
		t.AccessToken,
		t.RefreshToken,
		t.ExpiresAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("tokenstore: upsert tokens: %w", err)
	}
	slog.Debug("tokenstore: tokens stored", "platform", t.Platform, "expires_at", t.ExpiresAt)
	return nil
}

// Get returns the token state for platform, or ErrNotFound.
func (s *Store) Get(ctx context.Context, platform string) (Tokens, error) {
	const q = `SELECT platform, access_token, refresh_token, expires_at, updated_at FROM tokens WHERE platform = ?`

	var (
		t                     Tokens
		expiresAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, q, platform).Scan(&t.Platform, &t.AccessToken, &t.RefreshToken, &expiresAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tokens{}, ErrNotFound
		}
		return Tokens{}, fmt.Errorf("tokenstore: query tokens: %w", err)
	}

	t.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return Tokens{}, fmt.Errorf("tokenstore: parse expires_at: %w", err)
	}
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Tokens{}, fmt.Errorf("tokenstore: parse updated_at: %w", err)
	}
	return t, nil
}

// All returns every stored platform's token state, for the `tokens show`
// CLI subcommand.
func (s *Store) All(ctx context.Context) ([]Tokens, error) {
	const q = `SELECT platform, access_token, refresh_token, expires_at, updated_at FROM tokens ORDER BY platform`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: query all tokens: %w", err)
	}
	defer rows.Close()

	var out []Tokens
	for rows.Next() {
		var (
			t                     Tokens
			expiresAt, updatedAt string
		)
		if err := rows.Scan(&t.Platform, &t.AccessToken, &t.RefreshToken, &expiresAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("tokenstore: scan tokens: %w", err)
		}
		if t.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
			return nil, fmt.Errorf("tokenstore: parse expires_at: %w", err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("tokenstore: parse updated_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
