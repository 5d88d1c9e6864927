package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/memosync/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	name       TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite stores each record as one row of a key-value table.
type SQLite struct {
	conn   *sql.DB
	logger *slog.Logger
	mu     sync.Mutex // serializes read-modify-write of the notes record
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("localstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getRecord(ctx context.Context, q querier, name string) ([]byte, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM records WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get %s: %w", name, err)
	}
	return raw, nil
}

func putRecord(ctx context.Context, q querier, name string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO records (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, name, value)
	if err != nil {
		return fmt.Errorf("localstore: put %s: %w", name, err)
	}
	return nil
}

// LoadNotes implements Store.
func (s *SQLite) LoadNotes(ctx context.Context) ([]models.Note, error) {
	raw, err := getRecord(ctx, s.conn, NotesRecord)
	if err != nil {
		return nil, err
	}
	return decodeNotes(raw, s.logger), nil
}

// SaveNotes implements Store.
func (s *SQLite) SaveNotes(ctx context.Context, notes []models.Note) error {
	data, err := encode(notes)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return putRecord(ctx, s.conn, NotesRecord, data)
}

// UpdateNotes implements Store.
func (s *SQLite) UpdateNotes(ctx context.Context, fn UpdateFunc) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("localstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	raw, err := getRecord(ctx, tx, NotesRecord)
	if err != nil {
		return nil, err
	}
	next, err := fn(decodeNotes(raw, s.logger))
	if err != nil {
		return nil, err
	}
	data, err := encode(next)
	if err != nil {
		return nil, err
	}
	if err := putRecord(ctx, tx, NotesRecord, data); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("localstore: commit: %w", err)
	}
	return next, nil
}

// LoadSettings implements Store.
func (s *SQLite) LoadSettings(ctx context.Context) (*models.Settings, error) {
	raw, err := getRecord(ctx, s.conn, SettingsRecord)
	if err != nil {
		return nil, err
	}
	return decodeSettings(raw, s.logger), nil
}

// SaveSettings implements Store.
func (s *SQLite) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := encode(settings)
	if err != nil {
		return err
	}
	return putRecord(ctx, s.conn, SettingsRecord, data)
}

// ClearSettings implements Store.
func (s *SQLite) ClearSettings(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM records WHERE name = ?`, SettingsRecord); err != nil {
		return fmt.Errorf("localstore: clear settings: %w", err)
	}
	return nil
}

// Verify *SQLite satisfies Store at compile time.
var _ Store = (*SQLite)(nil)
