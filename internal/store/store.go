package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - runs, trace, defects, parked
const currentSchemaVersion = 1

const defaultBusyTimeout = 5 * time.Second

// Store is the SQLite run log. It implements engine.Recorder.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Option configures Open.
type Option func(*config)

type config struct {
	busyTimeout time.Duration
	readOnly    bool
}

// WithBusyTimeout sets how long a statement waits on a locked database.
// Default 5s.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busyTimeout = d }
}

// ReadOnly opens an existing run log without creating or migrating it.
// `flexi trace` uses it so a mistyped path fails instead of creating an
// empty database.
func ReadOnly() Option {
	return func(c *config) { c.readOnly = true }
}

// Open creates or opens the run log at path.
//
// A writable store runs with WAL journaling, NORMAL synchronous mode and
// foreign keys on, and applies the schema and migrations. Reopening an
// existing file is safe.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := path
	if cfg.readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		dsn = "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer and the pragmas below are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if cfg.readOnly {
		err = checkVersion(db)
	} else {
		err = applySchema(db)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, readOnly: cfg.readOnly}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB. Prefer the Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ReadOnly reports whether the store was opened with the ReadOnly option.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

func applyPragmas(db *sql.DB, cfg config) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if !cfg.readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	// Version 1 is the initial schema. Later versions add steps here keyed
	// on the version read above.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// checkVersion accepts only a database already at the current schema.
func checkVersion(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		return fmt.Errorf("not a run log: schema version 0")
	case version != currentSchemaVersion:
		return fmt.Errorf("database schema version %d, expected %d", version, currentSchemaVersion)
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
