package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"atlas/internal/config"
	"atlas/internal/services"
)

// Theme is the panel colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultTheme is reported until the user picks one.
const DefaultTheme = ThemeDark

const keyTheme = "theme"

// ParseTheme validates a theme name.
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	}
	return "", services.WithHint(
		services.Wrap(services.ErrValidation, "prefs", "parse theme", fmt.Sprintf("unknown theme %q", value), nil),
		"use dark or light",
	)
}

// Store reads and writes preferences.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens prefs.db in the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.PrefsPath())
}

// OpenPath opens the preferences database at an explicit path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps pragmas applied to every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Theme returns the saved theme or DefaultTheme when none is stored.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	value, ok, err := s.get(ctx, keyTheme)
	if err != nil {
		return DefaultTheme, err
	}
	if !ok {
		return DefaultTheme, nil
	}
	theme, err := ParseTheme(value)
	if err != nil {
		// A hand-edited row should not break the panel.
		return DefaultTheme, nil
	}
	return theme, nil
}

// SetTheme persists the theme. Only dark and light are accepted.
func (s *Store) SetTheme(ctx context.Context, value string) (Theme, error) {
	theme, err := ParseTheme(value)
	if err != nil {
		return "", err
	}
	if err := s.set(ctx, keyTheme, string(theme)); err != nil {
		return "", err
	}
	return theme, nil
}

// ToggleTheme flips between dark and light and returns the new value.
func (s *Store) ToggleTheme(ctx context.Context) (Theme, error) {
	current, err := s.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeLight
	if current == ThemeLight {
		next = ThemeDark
	}
	return s.SetTheme(ctx, string(next))
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}
