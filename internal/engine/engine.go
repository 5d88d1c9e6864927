// Package engine reconciles the local note collection with a remote store.
//
// Pull merges the remote collection into the local one, Push writes one note with the
// version token the remote expects, and Delete removes a note locally before a
// best-effort remote removal. The engine never retries; callers decide what to do with
// the classified errors it returns.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/remote"
)

// DefaultFetchConcurrency bounds the in-flight reads of a pull.
const DefaultFetchConcurrency = 8

// Engine runs pull, push and delete against a local store and the remote built from
// the stored connection settings.
type Engine struct {
	local       localstore.Store
	open        remote.Opener
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFetchConcurrency bounds the number of concurrent reads during a pull.
func WithFetchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over local, opening remotes with open.
func New(local localstore.Store, open remote.Opener, opts ...Option) *Engine {
	e := &Engine{
		local:       local,
		open:        open,
		logger:      slog.Default(),
		concurrency: DefaultFetchConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// remoteStore returns the remote for the stored settings, or nil when none are saved.
func (e *Engine) remoteStore(ctx context.Context) (remote.Store, error) {
	settings, err := e.local.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, nil
	}
	return e.open(*settings)
}

// Pull merges the remote collection into the local one, persists the result and
// returns it. Without settings it returns the local snapshot untouched.
func (e *Engine) Pull(ctx context.Context) ([]models.Note, error) {
	rs, err := e.remoteStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: pull: %w", err)
	}
	if rs == nil {
		e.logger.Debug("engine: pull skipped, remote not configured")
		return e.local.LoadNotes(ctx)
	}

	items, err := rs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: pull: %w", err)
	}
	fetched := e.fetch(ctx, rs, items)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("engine: pull: %w", err)
	}

	merged, err := e.local.UpdateNotes(ctx, func(local []models.Note) ([]models.Note, error) {
		return merge(local, fetched, func(slug string) {
			e.logger.Warn("engine: remote body empty, keeping local body",
				slog.String("slug", slug))
		}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: pull: persist: %w", err)
	}
	e.logger.Info("engine: pulled",
		slog.Int("remote", len(items)),
		slog.Int("notes", len(merged)))
	return merged, nil
}

// fetch reads every listed item concurrently. A failed or absent read yields an empty
// body with the listing token.
func (e *Engine) fetch(ctx context.Context, rs remote.Store, items []models.RemoteItem) []models.Note {
	now := e.now()
	notes := make([]models.Note, len(items))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, it := range items {
		notes[i] = models.Note{
			Slug:         it.Slug,
			LastModified: now,
			RemotePath:   it.Path,
			VersionToken: it.Token,
		}
		g.Go(func() error {
			rc, err := rs.Read(gCtx, it.Path)
			switch {
			case err != nil:
				e.logger.Warn("engine: read failed",
					slog.String("path", it.Path),
					slog.String("error", err.Error()))
			case rc == nil:
				e.logger.Warn("engine: listed item vanished", slog.String("path", it.Path))
			default:
				notes[i].Body = rc.Body
				notes[i].VersionToken = rc.Token
			}
			return nil
		})
	}
	_ = g.Wait()
	return notes
}

// Push writes the note identified by slug to the remote. ifMatch, when non-empty,
// replaces the stored token. It returns nil without error when the note does not exist.
func (e *Engine) Push(ctx context.Context, slug, ifMatch string) (*models.Note, error) {
	notes, err := e.local.LoadNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: push %s: %w", slug, err)
	}
	i := models.Find(notes, slug)
	if i < 0 {
		return nil, nil
	}
	n := notes[i]

	rs, err := e.remoteStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: push %s: %w", slug, err)
	}
	if rs == nil {
		return nil, fmt.Errorf("engine: push %s: %w", slug, apperr.ErrNotConfigured)
	}

	path := n.Path()
	token := ifMatch
	if token == "" {
		token = n.VersionToken
	}
	if token == "" {
		rc, err := rs.Read(ctx, path)
		switch {
		case err != nil:
			e.logger.Debug("engine: token discovery failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		case rc != nil:
			token = rc.Token
		}
	}

	newToken, err := rs.Write(ctx, path, n.Body, "Update "+slug, token)
	if err != nil {
		return nil, fmt.Errorf("engine: push %s: %w", slug, err)
	}

	var pushed *models.Note
	_, err = e.local.UpdateNotes(ctx, func(cur []models.Note) ([]models.Note, error) {
		j := models.Find(cur, slug)
		if j < 0 {
			// Deleted while the write was in flight.
			return cur, nil
		}
		cur[j].VersionToken = newToken
		cur[j].RemotePath = path
		cp := cur[j]
		pushed = &cp
		return cur, nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: push %s: persist: %w", slug, err)
	}
	if pushed == nil {
		n.VersionToken, n.RemotePath = newToken, path
		pushed = &n
	}
	e.logger.Info("engine: pushed", slog.String("slug", slug), slog.String("path", path))
	return pushed, nil
}

// Delete removes the note from the local collection and returns it, or nil when no
// note has that slug.
func (e *Engine) Delete(ctx context.Context, slug string) (*models.Note, error) {
	var removed *models.Note
	_, err := e.local.UpdateNotes(ctx, func(cur []models.Note) ([]models.Note, error) {
		i := models.Find(cur, slug)
		if i < 0 {
			return cur, nil
		}
		n := cur[i]
		removed = &n
		return append(cur[:i:i], cur[i+1:]...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: delete %s: %w", slug, err)
	}
	return removed, nil
}

// RemoveRemote deletes the remote item of a locally deleted note, using the token the
// remote currently reports. A missing item or missing settings is not an error.
func (e *Engine) RemoveRemote(ctx context.Context, n models.Note) error {
	rs, err := e.remoteStore(ctx)
	if err != nil {
		return fmt.Errorf("engine: remove %s: %w", n.Slug, err)
	}
	if rs == nil {
		return nil
	}
	path := n.Path()
	rc, err := rs.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("engine: remove %s: %w", n.Slug, err)
	}
	if rc == nil {
		return nil
	}
	if err := rs.Delete(ctx, path, "Delete "+n.Slug, rc.Token); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("engine: remove %s: %w", n.Slug, err)
	}
	e.logger.Info("engine: removed remote", slog.String("slug", n.Slug), slog.String("path", path))
	return nil
}
