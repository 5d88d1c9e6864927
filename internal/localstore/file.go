package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/memosync/internal/models"
)

// File stores each record as a JSON file inside a directory.
type File struct {
	dir    string // absolute path to the data directory
	logger *slog.Logger
	mu     sync.Mutex
}

// OpenFile creates the data directory if needed and returns a File store rooted there.
func OpenFile(dir string, logger *slog.Logger) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("localstore: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("localstore: create dir: %w", err)
	}
	return &File{dir: abs, logger: logger}, nil
}

// RecordPath returns the file holding the named record.
func (f *File) RecordPath(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Close implements Store. There is nothing to release.
func (f *File) Close() error { return nil }

func (f *File) read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.RecordPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", name, err)
	}
	return data, nil
}

// write atomically replaces a record: tmp file → fsync → rename.
func (f *File) write(name string, content []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".memosync-tmp-*")
	if err != nil {
		return fmt.Errorf("localstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("localstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("localstore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("localstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.RecordPath(name)); err != nil {
		return fmt.Errorf("localstore: rename: %w", err)
	}
	success = true
	return nil
}

// LoadNotes implements Store.
func (f *File) LoadNotes(_ context.Context) ([]models.Note, error) {
	raw, err := f.read(NotesRecord)
	if err != nil {
		return nil, err
	}
	return decodeNotes(raw, f.logger), nil
}

// SaveNotes implements Store.
func (f *File) SaveNotes(_ context.Context, notes []models.Note) error {
	data, err := encode(notes)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(NotesRecord, data)
}

// UpdateNotes implements Store.
func (f *File) UpdateNotes(_ context.Context, fn UpdateFunc) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := f.read(NotesRecord)
	if err != nil {
		return nil, err
	}
	next, err := fn(decodeNotes(raw, f.logger))
	if err != nil {
		return nil, err
	}
	data, err := encode(next)
	if err != nil {
		return nil, err
	}
	if err := f.write(NotesRecord, data); err != nil {
		return nil, err
	}
	return next, nil
}

// LoadSettings implements Store.
func (f *File) LoadSettings(_ context.Context) (*models.Settings, error) {
	raw, err := f.read(SettingsRecord)
	if err != nil {
		return nil, err
	}
	return decodeSettings(raw, f.logger), nil
}

// SaveSettings implements Store.
func (f *File) SaveSettings(_ context.Context, s models.Settings) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(SettingsRecord, data)
}

// ClearSettings implements Store.
func (f *File) ClearSettings(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.RecordPath(SettingsRecord)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localstore: clear settings: %w", err)
	}
	return nil
}

var _ Store = (*File)(nil)
