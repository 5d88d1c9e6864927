package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/checksum"
	"github.com/starford/memosync/internal/models"
)

// Dir is a remote backed by a directory tree, for shared folders and mounted
// checkouts. Tokens are git blob ids of the file content.
type Dir struct {
	root string // absolute path to <base>/<owner>/<repo>
	mu   sync.Mutex
}

// NewDir returns a Dir rooted at base/owner/repo. The directory is created on first write.
func NewDir(base string, settings models.Settings) (*Dir, error) {
	if base == "" {
		return nil, fmt.Errorf("remote: dir driver requires a base directory")
	}
	abs, err := filepath.Abs(filepath.Join(base, settings.Owner, settings.Repo))
	if err != nil {
		return nil, fmt.Errorf("remote: resolve root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// safePath resolves a slash-separated remote path against the root and rejects
// any result that escapes it.
func (d *Dir) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("remote: %w: empty path", apperr.ErrInvalid)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("remote: %w: absolute path %s", apperr.ErrInvalid, rel)
	}
	abs := filepath.Join(d.root, cleaned)
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("remote: %w: path escapes collection: %s", apperr.ErrInvalid, rel)
	}
	return abs, nil
}

// List walks the collection and returns every .md file, skipping hidden directories.
func (d *Dir) List(_ context.Context) ([]models.RemoteItem, error) {
	out := []models.RemoteItem{}
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == d.root && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if e.IsDir() {
			if p != d.root && strings.HasPrefix(e.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !models.IsNotePath(e.Name()) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(d.root, p)
		rel = filepath.ToSlash(rel)
		out = append(out, models.RemoteItem{
			Slug:  models.SlugFromPath(rel),
			Path:  rel,
			Token: checksum.Blob(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote: list: %w: %w", apperr.ErrNetwork, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns the content and token of path, or nil when it does not exist.
func (d *Dir) Read(_ context.Context, path string) (*models.RemoteContent, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remote: read %s: %w: %w", path, apperr.ErrNetwork, err)
	}
	return &models.RemoteContent{Body: string(data), Token: checksum.Blob(data)}, nil
}

// Write creates or replaces path. Without a token an existing item is only accepted
// when its content is identical to body.
func (d *Dir) Write(_ context.Context, path, body, _ string, token string) (string, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := os.ReadFile(abs)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remote: write %s: %w: %w", path, apperr.ErrNetwork, err)
	}
	newToken := checksum.Blob([]byte(body))
	switch {
	case token == "" && exists:
		if string(current) == body {
			return newToken, nil
		}
		return "", fmt.Errorf("remote: write %s: %w: item exists and no token was given", path, apperr.ErrConflict)
	case token != "" && !exists:
		return "", fmt.Errorf("remote: write %s: %w: item is gone", path, apperr.ErrConflict)
	case token != "" && checksum.Blob(current) != token:
		return "", fmt.Errorf("remote: write %s: %w: token %s is stale", path, apperr.ErrConflict, token)
	}

	if err := atomicWrite(abs, []byte(body)); err != nil {
		return "", fmt.Errorf("remote: write %s: %w: %w", path, apperr.ErrNetwork, err)
	}
	return newToken, nil
}

// Delete removes path when token matches its current content.
func (d *Dir) Delete(_ context.Context, path, _ string, token string) error {
	abs, err := d.safePath(path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remote: delete %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remote: delete %s: %w: %w", path, apperr.ErrNetwork, err)
	}
	if checksum.Blob(current) != token {
		return fmt.Errorf("remote: delete %s: %w: token %q is stale", path, apperr.ErrConflict, token)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("remote: delete %s: %w: %w", path, apperr.ErrNetwork, err)
	}
	return nil
}

// atomicWrite writes content next to abs and renames it into place.
func atomicWrite(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".memosync-tmp-*")
	if err != nil {
		return err
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
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return err
	}
	success = true
	return nil
}

var _ Store = (*Dir)(nil)
