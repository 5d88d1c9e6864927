// Package testutil provides shared test helpers for local stores, remotes and timing.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/remote"
)

// Settings are valid connection settings for tests.
var Settings = models.Settings{Owner: "me", Repo: "memos", Token: "test-token"}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LocalStore opens a store of driver in a temporary directory that is cleaned up.
func LocalStore(t *testing.T, driver string) localstore.Store {
	t.Helper()
	path := t.TempDir()
	if driver == localstore.DriverSQLite {
		path = filepath.Join(path, "memosync.db")
	}
	s, err := localstore.Open(driver, path, Logger())
	if err != nil {
		t.Fatalf("open %s store: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Configure saves Settings into s.
func Configure(t *testing.T, s localstore.Store) {
	t.Helper()
	if err := s.SaveSettings(context.Background(), Settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

// MemoryRemote returns a shared in-memory remote and an opener bound to it.
func MemoryRemote(opts ...remote.MemoryOption) (*remote.Memory, remote.Opener) {
	mem := remote.NewMemory(opts...)
	return mem, remote.NewOpener(remote.Options{Driver: remote.DriverMemory, Memory: mem})
}

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
