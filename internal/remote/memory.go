package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/checksum"
	"github.com/starford/memosync/internal/models"
)

// TokenFunc computes the version token of a newly written body.
type TokenFunc func(path, body string) string

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithTokenFunc replaces the default git blob token.
func WithTokenFunc(fn TokenFunc) MemoryOption {
	return func(m *Memory) { m.token = fn }
}

// WithFailure makes every call to op (list, read, write, delete) return err.
// A nil err clears the failure.
func WithFailure(op string, err error) MemoryOption {
	return func(m *Memory) { m.fail[op] = err }
}

type memoryItem struct {
	body  string
	token string
}

// Memory is an in-process remote shared by every Open of the memory driver.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	token TokenFunc
	fail  map[string]error
	calls map[string]int
}

// NewMemory returns an empty in-process remote.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items: map[string]memoryItem{},
		token: func(_, body string) string { return checksum.Blob([]byte(body)) },
		fail:  map[string]error{},
		calls: map[string]int{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure applies opts to a live store.
func (m *Memory) Configure(opts ...MemoryOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(m)
	}
}

// Seed stores body at path with a fixed token, bypassing concurrency checks.
func (m *Memory) Seed(path, body, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[path] = memoryItem{body: body, token: token}
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	if err := m.fail[op]; err != nil {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	return nil
}

// List returns every note item sorted by path.
func (m *Memory) List(_ context.Context) ([]models.RemoteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("list"); err != nil {
		return nil, err
	}
	out := make([]models.RemoteItem, 0, len(m.items))
	for p, it := range m.items {
		if !models.IsNotePath(p) {
			continue
		}
		out = append(out, models.RemoteItem{Slug: models.SlugFromPath(p), Path: p, Token: it.token})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns the item at path, or nil.
func (m *Memory) Read(_ context.Context, path string) (*models.RemoteContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("read"); err != nil {
		return nil, err
	}
	it, ok := m.items[path]
	if !ok {
		return nil, nil
	}
	return &models.RemoteContent{Body: it.body, Token: it.token}, nil
}

// Write creates or replaces path following the same token rules as Dir.
func (m *Memory) Write(_ context.Context, path, body, _ string, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("write"); err != nil {
		return "", err
	}
	cur, exists := m.items[path]
	switch {
	case token == "" && exists && cur.body != body:
		return "", fmt.Errorf("remote: write %s: %w: item exists and no token was given", path, apperr.ErrConflict)
	case token == "" && exists:
		return cur.token, nil
	case token != "" && !exists:
		return "", fmt.Errorf("remote: write %s: %w: item is gone", path, apperr.ErrConflict)
	case token != "" && cur.token != token:
		return "", fmt.Errorf("remote: write %s: %w: token %q is stale", path, apperr.ErrConflict, token)
	}
	next := m.token(path, body)
	m.items[path] = memoryItem{body: body, token: next}
	return next, nil
}

// Delete removes path when token is current.
func (m *Memory) Delete(_ context.Context, path, _ string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("delete"); err != nil {
		return err
	}
	cur, ok := m.items[path]
	if !ok {
		return fmt.Errorf("remote: delete %s: %w", path, apperr.ErrNotFound)
	}
	if cur.token != token {
		return fmt.Errorf("remote: delete %s: %w: token %q is stale", path, apperr.ErrConflict, token)
	}
	delete(m.items, path)
	return nil
}

var _ Store = (*Memory)(nil)
