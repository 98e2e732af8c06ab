// Package store persists the client's credential pair across runs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/budget/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DB is a SQLite-backed credential store holding at most one credential pair.
type DB struct {
	db *sql.DB
}

// Open opens or creates the credential database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating credentials dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening credentials db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Tokens are secrets; the driver creates the file with the process umask.
	if err := os.Chmod(dbPath, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restricting credentials db: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Load returns the stored credentials. ok is false when none are stored.
func (d *DB) Load() (creds model.Credentials, ok bool, err error) {
	row := d.db.QueryRow("SELECT access_token, refresh_token, token_type FROM credentials WHERE id = 1")
	if err := row.Scan(&creds.AccessToken, &creds.RefreshToken, &creds.TokenType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credentials{}, false, nil
		}
		return model.Credentials{}, false, fmt.Errorf("reading credentials: %w", err)
	}
	return creds, !creds.Empty(), nil
}

// Save replaces any stored credentials with creds.
func (d *DB) Save(creds model.Credentials) error {
	if creds.Empty() {
		return errors.New("refusing to store empty access token")
	}
	tokenType := creds.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	_, err := d.db.Exec(`INSERT OR REPLACE INTO credentials
		(id, access_token, refresh_token, token_type, updated_at)
		VALUES (1, ?, ?, ?, ?)`,
		creds.AccessToken, creds.RefreshToken, tokenType,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Clear removes stored credentials. Clearing an empty store is not an error.
func (d *DB) Clear() error {
	if _, err := d.db.Exec("DELETE FROM credentials"); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// UpdatedAt returns when the credentials were last written.
func (d *DB) UpdatedAt() (time.Time, bool, error) {
	var raw string
	err := d.db.QueryRow("SELECT updated_at FROM credentials WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading credentials: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing updated_at: %w", err)
	}
	return t, true, nil
}
