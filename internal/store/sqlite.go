package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements a file-backed object store, the same role the
// local SQLite transport plays for Speckle desktop connectors: objects
// fetched once survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS objects (
	id      TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

// NewSQLiteStore opens (and if needed creates) the store database at
// the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening object store %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing object store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle, mainly for
// tests. The schema must already exist.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a payload from the store.
func (s *SQLiteStore) Get(ctx context.Context, objectID string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM objects WHERE id = ?", objectID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, MissError{ObjectID: objectID}
		}
		return nil, err
	}
	return payload, nil
}

// Put stores a payload. Content addressing makes an existing row
// authoritative, so inserts ignore conflicts rather than overwrite.
func (s *SQLiteStore) Put(ctx context.Context, objectID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO objects (id, payload) VALUES (?, ?)", objectID, payload)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
