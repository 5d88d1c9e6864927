// Package localstore persists the note collection and the connection settings on this device.
//
// Both records are read and written wholesale. A missing record is a valid state: an
// empty collection, or an unconfigured remote. A record that fails to decode degrades
// to the same empty state with a warning instead of failing the caller.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/memosync/internal/models"
)

// Record names.
const (
	NotesRecord    = "notes"
	SettingsRecord = "settings"
)

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// UpdateFunc receives the current collection and returns the collection to persist.
type UpdateFunc func(notes []models.Note) ([]models.Note, error)

// Store is the local persistence used by the engine and its adapters.
type Store interface {
	// LoadNotes returns the persisted collection, or an empty one.
	LoadNotes(ctx context.Context) ([]models.Note, error)
	// SaveNotes replaces the persisted collection.
	SaveNotes(ctx context.Context, notes []models.Note) error
	// UpdateNotes runs fn against the current collection and persists its result
	// atomically with respect to other UpdateNotes and SaveNotes calls.
	UpdateNotes(ctx context.Context, fn UpdateFunc) ([]models.Note, error)
	// LoadSettings returns nil when no settings were saved.
	LoadSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
	ClearSettings(ctx context.Context) error
	Close() error
}

// Open returns the store for driver rooted at path.
func Open(driver, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path, logger)
	case DriverFile:
		return OpenFile(path, logger)
	default:
		return nil, fmt.Errorf("localstore: unknown driver %q", driver)
	}
}

func decodeNotes(raw []byte, logger *slog.Logger) []models.Note {
	if len(raw) == 0 {
		return []models.Note{}
	}
	var notes []models.Note
	if err := json.Unmarshal(raw, &notes); err != nil {
		logger.Warn("localstore: notes record unreadable, starting empty", slog.String("error", err.Error()))
		return []models.Note{}
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes
}

func decodeSettings(raw []byte, logger *slog.Logger) *models.Settings {
	if len(raw) == 0 {
		return nil
	}
	var s models.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Warn("localstore: settings record unreadable, treating as unconfigured", slog.String("error", err.Error()))
		return nil
	}
	return &s
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("localstore: encode: %w", err)
	}
	return data, nil
}
