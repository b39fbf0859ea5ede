package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the attempt log layout this build writes. It is stamped
// into PRAGMA user_version when a log is created.
const SchemaVersion = 1

// ErrNewerSchema is returned by Open for a log written by a later build.
var ErrNewerSchema = errors.New("attempt log schema is newer than this build")

// connParams are applied by the driver to every connection it opens.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// Store is the SQLite attempt log.
type Store struct {
	db *sql.DB
}

// Open opens the attempt log at path, creating it if needed. ":memory:"
// gives a private in-memory log.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: writes are serialised and :memory: stays one database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening attempt log %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// prepare creates the tables and checks the layout version.
func prepare(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: v%d, this build reads v%d", ErrNewerSchema, version, SchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if version == 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for read queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
