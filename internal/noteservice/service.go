// Package noteservice is the use-case layer shared by the HTTP API, the MCP server and the CLI.
package noteservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/notify"
	"github.com/starford/memosync/internal/orchestrator"
	"github.com/starford/memosync/internal/parser"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Title       string         `json:"title"`
	Preview     string         `json:"preview"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Synced      bool           `json:"synced"`
}

// ListItem is a lightweight item in a list response.
type ListItem struct {
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	LastModified time.Time `json:"lastModified"`
	Synced       bool      `json:"synced"`
	RemotePath   string    `json:"remotePath,omitempty"`
}

// Syncer runs remote operations and auto-save; *orchestrator.Orchestrator implements it.
type Syncer interface {
	Sync(ctx context.Context) ([]models.Note, error)
	Push(ctx context.Context, slug, ifMatch string) (*models.Note, error)
	Delete(ctx context.Context, slug string) (bool, error)
	Edited(slug string)
	Discard(slug string) bool
	Status() orchestrator.Status
	Toasts() *notify.Center
}

// EventFunc receives note changes ("created", "updated", "deleted").
type EventFunc func(kind, slug string)

// Service coordinates the local store and the sync orchestrator.
type Service struct {
	store  localstore.Store
	sync   Syncer
	events EventFunc
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the note change callback.
func WithEvents(fn EventFunc) Option {
	return func(s *Service) { s.events = fn }
}

// WithClock replaces time.Now, which also drives slug assignment.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a note service.
func NewService(store localstore.Store, sync Syncer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sync:   sync,
		events: func(string, string) {},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the collection in stored order.
func (s *Service) List(ctx context.Context) ([]ListItem, error) {
	notes, err := s.store.LoadNotes(ctx)
	if err != nil {
		return nil, err
	}
	return listItems(notes), nil
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, slug string) (*NoteDetail, error) {
	notes, err := s.store.LoadNotes(ctx)
	if err != nil {
		return nil, err
	}
	i := models.Find(notes, slug)
	if i < 0 {
		return nil, fmt.Errorf("note %s: %w", slug, apperr.ErrNotFound)
	}
	return buildDetail(notes[i]), nil
}

// Create adds a note with a timestamp slug at the front of the collection. A non-empty
// body schedules an auto-save.
func (s *Service) Create(ctx context.Context, body string) (*NoteDetail, error) {
	now := s.now()
	n := models.Note{Slug: models.NewSlug(now), Body: body, LastModified: now}
	_, err := s.store.UpdateNotes(ctx, func(cur []models.Note) ([]models.Note, error) {
		if models.Find(cur, n.Slug) >= 0 {
			return nil, fmt.Errorf("note %s: %w", n.Slug, apperr.ErrAlreadyExists)
		}
		return append([]models.Note{n}, cur...), nil
	})
	if err != nil {
		return nil, err
	}
	s.events("created", n.Slug)
	if body != "" {
		s.sync.Edited(n.Slug)
	}
	return buildDetail(n), nil
}

// Update replaces the body of a note and schedules an auto-save.
func (s *Service) Update(ctx context.Context, slug, body string) (*NoteDetail, error) {
	var updated models.Note
	_, err := s.store.UpdateNotes(ctx, func(cur []models.Note) ([]models.Note, error) {
		i := models.Find(cur, slug)
		if i < 0 {
			return nil, fmt.Errorf("note %s: %w", slug, apperr.ErrNotFound)
		}
		cur[i].Body = body
		cur[i].LastModified = s.now()
		updated = cur[i]
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	s.events("updated", slug)
	s.sync.Edited(slug)
	return buildDetail(updated), nil
}

// Delete removes a note locally; the remote copy is removed in the background.
func (s *Service) Delete(ctx context.Context, slug string) error {
	removed, err := s.sync.Delete(ctx, slug)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("note %s: %w", slug, apperr.ErrNotFound)
	}
	s.events("deleted", slug)
	return nil
}

// Push sends one note to the remote now. ifMatch overrides the stored version token.
func (s *Service) Push(ctx context.Context, slug, ifMatch string) (*NoteDetail, error) {
	n, err := s.sync.Push(ctx, slug, ifMatch)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("note %s: %w", slug, apperr.ErrNotFound)
	}
	s.events("updated", slug)
	return buildDetail(*n), nil
}

// Discard gives up the unsaved offline edit of slug so the next sync takes the remote body.
func (s *Service) Discard(_ context.Context, slug string) error {
	if !s.sync.Discard(slug) {
		return fmt.Errorf("pending edit %s: %w", slug, apperr.ErrNotFound)
	}
	return nil
}

// Sync pulls the remote collection and returns the merged listing.
func (s *Service) Sync(ctx context.Context) ([]ListItem, error) {
	notes, err := s.sync.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return listItems(notes), nil
}

// Status returns the sync state.
func (s *Service) Status() orchestrator.Status {
	return s.sync.Status()
}

// Toast returns the visible notification, if any.
func (s *Service) Toast() (notify.Toast, bool) {
	return s.sync.Toasts().Current()
}

// Settings returns the stored connection settings with the token masked, or nil.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	st, err := s.store.LoadSettings(ctx)
	if err != nil || st == nil {
		return nil, err
	}
	masked := st.Masked()
	return &masked, nil
}

// SaveSettings validates and stores connection settings.
func (s *Service) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w: %w", apperr.ErrInvalid, err)
	}
	return s.store.SaveSettings(ctx, settings)
}

// ClearSettings disconnects the remote.
func (s *Service) ClearSettings(ctx context.Context) error {
	return s.store.ClearSettings(ctx)
}

func buildDetail(n models.Note) *NoteDetail {
	res := parser.Parse(n.Body)
	title := res.Title
	if title == "" {
		title = n.Slug
	}
	return &NoteDetail{
		Note:        n,
		Title:       title,
		Preview:     res.Preview,
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Synced:      !n.LocalOnly(),
	}
}

func listItems(notes []models.Note) []ListItem {
	items := make([]ListItem, len(notes))
	for i, n := range notes {
		res := parser.Parse(n.Body)
		title := res.Title
		if title == "" {
			title = n.Slug
		}
		items[i] = ListItem{
			Slug:         n.Slug,
			Title:        title,
			Preview:      res.Preview,
			LastModified: n.LastModified,
			Synced:       !n.LocalOnly(),
			RemotePath:   n.RemotePath,
		}
	}
	return items
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
