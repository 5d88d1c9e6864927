package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/remote"
)

var testSettings = models.Settings{Owner: "me", Repo: "memos", Token: "t"}

type testEnv struct {
	engine *Engine
	local  localstore.Store
	mem    *remote.Memory
}

func newTestEnv(t *testing.T, configured bool, opts ...remote.MemoryOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local, err := localstore.Open(localstore.DriverFile, t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open local: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	if configured {
		if err := local.SaveSettings(context.Background(), testSettings); err != nil {
			t.Fatal(err)
		}
	}
	mem := remote.NewMemory(opts...)
	open := remote.NewOpener(remote.Options{Driver: remote.DriverMemory, Memory: mem})
	return &testEnv{
		engine: New(local, open, WithLogger(logger), WithFetchConcurrency(2)),
		local:  local,
		mem:    mem,
	}
}

func (e *testEnv) seedLocal(t *testing.T, notes ...models.Note) {
	t.Helper()
	if err := e.local.SaveNotes(context.Background(), notes); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) localNote(t *testing.T, slug string) *models.Note {
	t.Helper()
	notes, err := e.local.LoadNotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if i := models.Find(notes, slug); i >= 0 {
		return &notes[i]
	}
	return nil
}

func fixedToken(tok string) remote.MemoryOption {
	return remote.WithTokenFunc(func(_, _ string) string { return tok })
}

func TestScenarioDraftPushAndStaleToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true, fixedToken("abc123"))
	env.seedLocal(t, models.Note{Slug: "memo-20240101-000000", Body: "draft"})

	notes, err := env.engine.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "draft" || notes[0].VersionToken != "" {
		t.Fatalf("after pull = %+v", notes)
	}

	pushed, err := env.engine.Push(ctx, "memo-20240101-000000", "")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pushed.VersionToken != "abc123" {
		t.Errorf("pushed token = %q", pushed.VersionToken)
	}

	_, err = env.engine.Push(ctx, "memo-20240101-000000", "zzz")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale push = %v, want conflict", err)
	}
	if got := env.localNote(t, "memo-20240101-000000"); got.VersionToken != "abc123" {
		t.Errorf("stored token = %q, want abc123", got.VersionToken)
	}
}

func TestPushThenPullRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "hello"})

	if _, err := env.engine.Push(ctx, "memo-1", ""); err != nil {
		t.Fatalf("Push: %v", err)
	}
	notes, err := env.engine.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "hello" || notes[0].RemotePath != "memo-1.md" {
		t.Errorf("after round trip = %+v", notes)
	}
}

func TestPushDiscoversExistingToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.mem.Seed("memo-1.md", "earlier push", "t-old")
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "new body"})

	pushed, err := env.engine.Push(ctx, "memo-1", "")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pushed.VersionToken == "" || pushed.VersionToken == "t-old" {
		t.Errorf("token = %q", pushed.VersionToken)
	}
	rc, _ := env.mem.Read(ctx, "memo-1.md")
	if rc.Body != "new body" {
		t.Errorf("remote body = %q", rc.Body)
	}
}

func TestPushUsesRecordedPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.mem.Seed("2024/memo-1.md", "remote", "t1")
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "edited", RemotePath: "2024/memo-1.md", VersionToken: "t1"})

	if _, err := env.engine.Push(ctx, "memo-1", ""); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if rc, _ := env.mem.Read(ctx, "2024/memo-1.md"); rc == nil || rc.Body != "edited" {
		t.Errorf("nested item = %+v", rc)
	}
	if rc, _ := env.mem.Read(ctx, "memo-1.md"); rc != nil {
		t.Error("push created a root item")
	}
}

func TestPushWithoutSettings(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "x"})
	if _, err := env.engine.Push(context.Background(), "memo-1", ""); !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("Push = %v, want not configured", err)
	}
}

func TestPushMissingNote(t *testing.T) {
	env := newTestEnv(t, true)
	n, err := env.engine.Push(context.Background(), "nope", "")
	if n != nil || err != nil {
		t.Errorf("Push missing = %v, %v", n, err)
	}
	if env.mem.Calls("write") != 0 {
		t.Error("write issued for a missing note")
	}
}

func TestPushFailureLeavesLocal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true, remote.WithFailure("write", apperr.ErrNetwork))
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "x", VersionToken: "t1"})

	if _, err := env.engine.Push(ctx, "memo-1", ""); !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("Push = %v, want network", err)
	}
	if got := env.localNote(t, "memo-1"); got.VersionToken != "t1" || got.RemotePath != "" {
		t.Errorf("local note changed: %+v", got)
	}
	if env.mem.Calls("write") != 1 {
		t.Errorf("write calls = %d, want exactly one", env.mem.Calls("write"))
	}
}

func TestPushKeepsConcurrentEdit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "v1"})

	// Simulate an edit landing between the remote write and the token write-back.
	edited := false
	env.mem.Configure(remote.WithTokenFunc(func(_, body string) string {
		if !edited {
			edited = true
			_, _ = env.local.UpdateNotes(ctx, func(cur []models.Note) ([]models.Note, error) {
				cur[0].Body = "v2"
				return cur, nil
			})
		}
		return "tok-" + body
	}))

	if _, err := env.engine.Push(ctx, "memo-1", ""); err != nil {
		t.Fatalf("Push: %v", err)
	}
	got := env.localNote(t, "memo-1")
	if got.Body != "v2" || got.VersionToken != "tok-v1" {
		t.Errorf("after push = %+v", got)
	}
}

func TestPullWithoutSettingsIsNoop(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "x"})
	notes, err := env.engine.Pull(context.Background())
	if err != nil || len(notes) != 1 {
		t.Fatalf("Pull = %+v, %v", notes, err)
	}
	if env.mem.Calls("list") != 0 {
		t.Error("list issued without settings")
	}
}

func TestPullMergesAndPersists(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.mem.Seed("memo-3.md", "remote three", "t3")
	env.mem.Seed("archive/memo-2.md", "remote two", "t2")
	env.seedLocal(t,
		models.Note{Slug: "memo-3", Body: "stale local", VersionToken: "t0"},
		models.Note{Slug: "memo-1", Body: "local only"},
	)

	notes, err := env.engine.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	want := []string{"memo-3", "memo-2", "memo-1"}
	if len(notes) != len(want) {
		t.Fatalf("notes = %+v", notes)
	}
	for i, slug := range want {
		if notes[i].Slug != slug {
			t.Errorf("notes[%d] = %s, want %s", i, notes[i].Slug, slug)
		}
	}
	if notes[0].Body != "remote three" || notes[0].VersionToken != "t3" {
		t.Errorf("memo-3 = %+v", notes[0])
	}
	if notes[1].RemotePath != "archive/memo-2.md" {
		t.Errorf("memo-2 path = %q", notes[1].RemotePath)
	}
	if stored := env.localNote(t, "memo-1"); stored == nil || stored.Body != "local only" {
		t.Errorf("stored memo-1 = %+v", stored)
	}
}

func TestPullReadFailureKeepsLocalBody(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.mem.Seed("memo-1.md", "remote", "t-remote")
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "unsynced", VersionToken: "t-old"})
	env.mem.Configure(remote.WithFailure("read", apperr.ErrNetwork))

	notes, err := env.engine.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if notes[0].Body != "unsynced" || notes[0].VersionToken != "t-remote" {
		t.Errorf("after failed read = %+v", notes[0])
	}
}

func TestPullListFailureAborts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true, remote.WithFailure("list", apperr.ErrAuth))
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "x"})

	if _, err := env.engine.Pull(ctx); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("Pull = %v, want auth", err)
	}
	if got := env.localNote(t, "memo-1"); got == nil || got.Body != "x" {
		t.Errorf("local changed: %+v", got)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.seedLocal(t, models.Note{Slug: "memo-1", Body: "x"})

	n, err := env.engine.Delete(ctx, "memo-1")
	if err != nil || n == nil {
		t.Fatalf("Delete = %v, %v", n, err)
	}
	n, err = env.engine.Delete(ctx, "memo-1")
	if err != nil || n != nil {
		t.Errorf("second Delete = %v, %v", n, err)
	}
}

func TestRemoveRemoteWithoutCounterpart(t *testing.T) {
	env := newTestEnv(t, true)
	if err := env.engine.RemoveRemote(context.Background(), models.Note{Slug: "memo-1"}); err != nil {
		t.Fatalf("RemoveRemote: %v", err)
	}
	if env.mem.Calls("delete") != 0 {
		t.Error("delete issued for a note with no remote item")
	}
}

func TestRemoveRemoteUsesCurrentToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.mem.Seed("memo-1.md", "newer remote", "t-current")

	// The note carries a stale token; removal must read the current one.
	if err := env.engine.RemoveRemote(ctx, models.Note{Slug: "memo-1", VersionToken: "t-stale"}); err != nil {
		t.Fatalf("RemoveRemote: %v", err)
	}
	if rc, _ := env.mem.Read(ctx, "memo-1.md"); rc != nil {
		t.Error("remote item survived")
	}
}

func TestRemoveRemoteWithoutSettings(t *testing.T) {
	env := newTestEnv(t, false)
	if err := env.engine.RemoveRemote(context.Background(), models.Note{Slug: "memo-1"}); err != nil {
		t.Errorf("RemoveRemote = %v", err)
	}
	if env.mem.Calls("read") != 0 {
		t.Error("remote touched without settings")
	}
}
