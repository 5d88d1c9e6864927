// Package remote is the stateless façade over a remote note repository.
//
// Every driver exchanges an opaque version token on each read and write. A write or
// delete that presents a stale token fails with apperr.ErrConflict; a read of a missing
// item returns nil without an error. Transport and credential failures are returned
// wrapped in apperr.ErrNetwork or apperr.ErrAuth. Drivers never retry.
package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/models"
)

// Drivers.
const (
	DriverGitHub = "github"
	DriverDir    = "dir"
	DriverMemory = "memory"
)

// Store is the remote content API consumed by the engine.
type Store interface {
	// List enumerates every note item in the remote tree, recursively.
	List(ctx context.Context) ([]models.RemoteItem, error)
	// Read returns nil when path does not exist.
	Read(ctx context.Context, path string) (*models.RemoteContent, error)
	// Write creates path when token is empty, or replaces it when token is current.
	Write(ctx context.Context, path, body, message, token string) (string, error)
	// Delete removes path when token is current.
	Delete(ctx context.Context, path, message, token string) error
}

// Options selects and configures a driver.
type Options struct {
	Driver string
	// Dir is the root of the dir driver; the collection lives in Dir/<owner>/<repo>.
	Dir string
	// GitHubBaseURL overrides the GitHub API endpoint (Enterprise, tests).
	GitHubBaseURL string
	HTTPClient    *http.Client
	// Memory is shared by every Open call of the memory driver.
	Memory *Memory
}

// Opener builds a Store for a set of connection settings.
type Opener func(settings models.Settings) (Store, error)

// NewOpener returns an Opener bound to opts. A fresh client is built on every call,
// so changed settings take effect on the next operation.
func NewOpener(opts Options) Opener {
	return func(settings models.Settings) (Store, error) {
		return Open(opts, settings)
	}
}

// Open builds the Store selected by opts.Driver.
func Open(opts Options, settings models.Settings) (Store, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("remote: settings: %w: %w", apperr.ErrNotConfigured, err)
	}
	switch opts.Driver {
	case DriverGitHub, "":
		return NewGitHub(settings, opts.HTTPClient, opts.GitHubBaseURL)
	case DriverDir:
		return NewDir(opts.Dir, settings)
	case DriverMemory:
		if opts.Memory == nil {
			return nil, fmt.Errorf("remote: memory driver without a shared store")
		}
		return opts.Memory, nil
	default:
		return nil, fmt.Errorf("remote: unknown driver %q", opts.Driver)
	}
}
