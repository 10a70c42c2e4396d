// Package store provides SQLite persistence for user preferences.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/nexus/internal/model"
)

// Keys under which preferences are stored.
const (
	KeyFavorites = "nexus_favorites"
	KeyLocale    = "nexus_language"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

// Store is a string key-value table. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is its own database; pin one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the value for key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t time.Time
	err := s.db.QueryRow(`SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return t, nil
}

// Favorites loads the favorite set. A missing or corrupt value yields an
// empty set; corruption is reported as an error alongside it.
func (s *Store) Favorites() (model.FavoriteSet, error) {
	raw, err := s.Get(KeyFavorites)
	if errors.Is(err, ErrNotFound) {
		return model.NewFavoriteSet(), nil
	}
	if err != nil {
		return model.NewFavoriteSet(), err
	}

	var favs model.FavoriteSet
	if err := json.Unmarshal([]byte(raw), &favs); err != nil {
		return model.NewFavoriteSet(), fmt.Errorf("decode favorites: %w", err)
	}
	return favs, nil
}

// SaveFavorites stores favs as a JSON array of IDs.
func (s *Store) SaveFavorites(favs model.FavoriteSet) error {
	data, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	return s.Set(KeyFavorites, string(data))
}

// Locale returns the saved locale, or "" when none was saved.
func (s *Store) Locale() (string, error) {
	v, err := s.Get(KeyLocale)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SaveLocale stores the locale.
func (s *Store) SaveLocale(locale string) error {
	return s.Set(KeyLocale, locale)
}
