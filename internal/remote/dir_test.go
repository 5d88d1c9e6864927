package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/checksum"
	"github.com/starford/memosync/internal/models"
)

var testSettings = models.Settings{Owner: "me", Repo: "memos", Token: "t"}

func newTestDir(t *testing.T) (*Dir, string) {
	t.Helper()
	base := t.TempDir()
	d, err := NewDir(base, testSettings)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d, filepath.Join(base, "me", "memos")
}

func TestDirListMissingCollection(t *testing.T) {
	d, _ := newTestDir(t)
	items, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want empty", items)
	}
}

func TestDirWriteReadList(t *testing.T) {
	ctx := context.Background()
	d, root := newTestDir(t)

	tok, err := d.Write(ctx, "memo-1.md", "hello\n", "Update memo-1", "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if tok != checksum.Blob([]byte("hello\n")) {
		t.Errorf("token = %s", tok)
	}

	// Nested and hidden items.
	if err := os.MkdirAll(filepath.Join(root, "data", "2024"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "data", "2024", "memo-2.md"), []byte("nested"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".git", "x.md"), []byte("hidden"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("no"), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := d.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	if items[0].Path != "data/2024/memo-2.md" || items[0].Slug != "memo-2" {
		t.Errorf("nested item = %+v", items[0])
	}
	if items[1].Path != "memo-1.md" || items[1].Token != tok {
		t.Errorf("root item = %+v", items[1])
	}

	rc, err := d.Read(ctx, "memo-1.md")
	if err != nil || rc == nil {
		t.Fatalf("Read: %v %v", rc, err)
	}
	if rc.Body != "hello\n" || rc.Token != tok {
		t.Errorf("read = %+v", rc)
	}
}

func TestDirReadMissing(t *testing.T) {
	d, _ := newTestDir(t)
	rc, err := d.Read(context.Background(), "nope.md")
	if err != nil || rc != nil {
		t.Errorf("Read missing = %v, %v", rc, err)
	}
}

func TestDirWriteConflicts(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDir(t)

	tok, err := d.Write(ctx, "a.md", "one", "m", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Write(ctx, "a.md", "two", "m", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("create over existing = %v, want conflict", err)
	}
	if same, err := d.Write(ctx, "a.md", "one", "m", ""); err != nil || same != tok {
		t.Errorf("create identical = %s, %v", same, err)
	}
	if _, err := d.Write(ctx, "a.md", "two", "m", "zzz"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale token = %v, want conflict", err)
	}
	next, err := d.Write(ctx, "a.md", "two", "m", tok)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next == tok {
		t.Error("token did not change")
	}
	if _, err := d.Write(ctx, "b.md", "x", "m", "abc"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("update of missing = %v, want conflict", err)
	}
}

func TestDirDelete(t *testing.T) {
	ctx := context.Background()
	d, root := newTestDir(t)
	tok, _ := d.Write(ctx, "a.md", "one", "m", "")

	if err := d.Delete(ctx, "a.md", "m", "zzz"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale delete = %v", err)
	}
	if err := d.Delete(ctx, "a.md", "m", tok); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.md")); !os.IsNotExist(err) {
		t.Error("file still present")
	}
	if err := d.Delete(ctx, "a.md", "m", tok); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

func TestDirPathTraversal(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDir(t)
	for _, p := range []string{"../escape.md", "/abs.md", "a/../../b.md", ""} {
		if _, err := d.Write(ctx, p, "x", "m", ""); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Write(%q) = %v, want invalid", p, err)
		}
	}
}

func TestOpenDispatch(t *testing.T) {
	if _, err := Open(Options{Driver: DriverDir, Dir: t.TempDir()}, models.Settings{}); !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("empty settings = %v, want not configured", err)
	}
	if _, err := Open(Options{Driver: "ftp"}, testSettings); err == nil {
		t.Error("unknown driver should fail")
	}
	mem := NewMemory()
	s, err := NewOpener(Options{Driver: DriverMemory, Memory: mem})(testSettings)
	if err != nil || s != Store(mem) {
		t.Errorf("memory opener = %v, %v", s, err)
	}
	if s, err := Open(Options{Driver: DriverDir, Dir: t.TempDir()}, testSettings); err != nil {
		t.Errorf("dir open: %v", err)
	} else if _, ok := s.(*Dir); !ok {
		t.Errorf("dir open returned %T", s)
	}
}
