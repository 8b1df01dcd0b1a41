package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Keys in the settings namespace.
const (
	KeyCheckIntervalSeconds = "check_interval_seconds"
	KeyMonitoringEnabled    = "monitoring_enabled"
)

// DefaultCheckIntervalSeconds applies when no interval has ever been persisted.
const DefaultCheckIntervalSeconds = 30

// SettingsStore is a durable key-value store backed by sqlite. It survives
// process restarts and holds the desired background-check interval and the
// logical monitoring on/off state.
type SettingsStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path.
func Open(path string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SettingsStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate settings db: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// Put stores value under key, replacing any previous value.
func (s *SettingsStore) Put(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

// Get returns the value for key, or ok=false when absent.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// PutInt stores an integer value under key.
func (s *SettingsStore) PutInt(key string, value int64) error {
	return s.Put(key, strconv.FormatInt(value, 10))
}

// GetInt returns the integer value for key, or fallback when absent or
// unparseable.
func (s *SettingsStore) GetInt(key string, fallback int64) int64 {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// PutBool stores a boolean value under key.
func (s *SettingsStore) PutBool(key string, value bool) error {
	return s.Put(key, strconv.FormatBool(value))
}

// GetBool returns the boolean value for key, or fallback when absent.
func (s *SettingsStore) GetBool(key string, fallback bool) bool {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

// CheckInterval returns the persisted desired check interval in seconds,
// defaulting when none has been stored yet.
func (s *SettingsStore) CheckInterval() int64 {
	return s.GetInt(KeyCheckIntervalSeconds, DefaultCheckIntervalSeconds)
}
