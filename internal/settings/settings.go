// Package settings persists operator settings in the SQLite settings table.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// KeyScheduleEnabled holds whether the built-in schedule is active.
const KeyScheduleEnabled = "schedule_enabled"

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("settings: key not found")

// Store reads and writes key/value settings.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store on a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetBool returns the boolean stored under key, or ErrNotFound.
func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("reading setting %s: %w", key, err)
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing setting %s: %w", key, err)
	}
	return v, nil
}

// SetBool stores value under key, replacing any previous value.
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, strconv.FormatBool(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// LoadBool returns the stored value for key, or fallback when the key is
// missing or unreadable. The error is nil only when the value was read or
// the key was missing.
func (s *Store) LoadBool(ctx context.Context, key string, fallback bool) (bool, error) {
	v, err := s.GetBool(ctx, key)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, ErrNotFound):
		return fallback, nil
	default:
		return fallback, err
	}
}
