package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/memosync/internal"
	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/remote"
)

func TestReadBody(t *testing.T) {
	got, err := readBody([]string{"memo-1", "new", "text"}, 1, nil, true, true)
	if err != nil || got != "new text" {
		t.Errorf("args body = %q, %v", got, err)
	}

	got, err = readBody([]string{"memo-1"}, 1, strings.NewReader("piped"), false, true)
	if err != nil || got != "piped" {
		t.Errorf("piped body = %q, %v", got, err)
	}

	if _, err := readBody([]string{"memo-1"}, 1, nil, true, true); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("edit on a terminal without body = %v, want invalid", err)
	}

	got, err = readBody(nil, 0, nil, true, false)
	if err != nil || got != "" {
		t.Errorf("new on a terminal = %q, %v", got, err)
	}
}

func openCLIApp(t *testing.T, connectivityURL string) (*internal.App, *remote.Memory) {
	t.Helper()
	cfg := internal.NewDefaultConfig()
	cfg.Local.Driver = localstore.DriverFile
	cfg.Local.Path = t.TempDir()
	cfg.Remote.Driver = remote.DriverMemory
	cfg.Sync.Debounce = time.Hour
	cfg.Sync.ConnectivityURL = connectivityURL
	cfg.Sync.ConnectivityTimeout = time.Second

	mem := remote.NewMemory()
	app, err := internal.Open(internal.WithConfig(cfg), internal.WithMemoryRemote(mem), internal.WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	if err := app.Notes.SaveSettings(context.Background(), models.Settings{Owner: "me", Repo: "memos", Token: "x"}); err != nil {
		t.Fatal(err)
	}
	return app, mem
}

func TestPushNowSkipsWhenOffline(t *testing.T) {
	down := httptest.NewServer(nil)
	down.Close()
	app, mem := openCLIApp(t, down.URL)
	ctx := context.Background()

	n, err := app.Notes.Create(ctx, "kept here")
	if err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	pushNow(ctx, &out, &errOut, app, n.Slug)

	if !strings.Contains(errOut.String(), "Offline") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if mem.Calls("write") != 0 {
		t.Error("remote written while offline")
	}
}

func TestPushNowWhenOnline(t *testing.T) {
	app, mem := openCLIApp(t, "")
	ctx := context.Background()

	n, err := app.Notes.Create(ctx, "ship it")
	if err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	pushNow(ctx, &out, &errOut, app, n.Slug)

	if !strings.HasPrefix(out.String(), "pushed "+n.Slug) {
		t.Errorf("stdout = %q, stderr = %q", out.String(), errOut.String())
	}
	if rc, _ := mem.Read(ctx, n.Slug+".md"); rc == nil || rc.Body != "ship it" {
		t.Errorf("remote = %+v", rc)
	}
}
