// Package server hosts the resolver endpoint and its backing lookup store:
// a keyed table mapping barcode identifiers to image URLs.
package server

import (
	"errors"
	"fmt"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound marks an identifier with no stored mapping.
var ErrNotFound = errors.New("identifier not found")

// Entry is one stored mapping.
type Entry struct {
	Number   string
	ImageURL string
}

// Store is the SQLite-backed lookup table. A single connection guarded by a
// mutex is plenty for the resolver's traffic.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

const schema = `CREATE TABLE IF NOT EXISTS barcodes (
	number    TEXT PRIMARY KEY,
	image_url TEXT NOT NULL
);`

// OpenStore opens (or creates) the lookup database at path. Use ":memory:"
// for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	flags := sqlite.OpenReadWrite | sqlite.OpenCreate
	if path == ":memory:" {
		flags |= sqlite.OpenMemory
	}
	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, fmt.Errorf("open lookup database %s: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare lookup schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Put inserts or replaces the mapping for an identifier.
func (s *Store) Put(number, imageURL string) error {
	if number == "" || imageURL == "" {
		return fmt.Errorf("store: number and image URL are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sqlitex.Execute(s.conn,
		`INSERT INTO barcodes (number, image_url) VALUES (?, ?)
		 ON CONFLICT(number) DO UPDATE SET image_url = excluded.image_url`,
		&sqlitex.ExecOptions{Args: []any{number, imageURL}})
}

// Lookup returns the image URL stored for an identifier, or ErrNotFound.
func (s *Store) Lookup(number string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var imageURL string
	found := false
	err := sqlitex.Execute(s.conn,
		`SELECT image_url FROM barcodes WHERE number = ?`,
		&sqlitex.ExecOptions{
			Args: []any{number},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				imageURL = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", number, err)
	}
	if !found {
		return "", ErrNotFound
	}
	return imageURL, nil
}

// List returns all stored mappings ordered by identifier.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []Entry
	err := sqlitex.Execute(s.conn,
		`SELECT number, image_url FROM barcodes ORDER BY number`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					Number:   stmt.ColumnText(0),
					ImageURL: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return entries, nil
}
