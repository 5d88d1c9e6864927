package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/memosync/internal/apperr"
)

func TestMemoryTokens(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithTokenFunc(func(_, _ string) string { return "abc123" }))

	tok, err := m.Write(ctx, "memo.md", "draft", "m", "")
	if err != nil || tok != "abc123" {
		t.Fatalf("Write = %s, %v", tok, err)
	}
	if _, err := m.Write(ctx, "memo.md", "draft 2", "m", "zzz"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale write = %v", err)
	}
	rc, _ := m.Read(ctx, "memo.md")
	if rc == nil || rc.Body != "draft" {
		t.Errorf("body after rejected write = %+v", rc)
	}
	if m.Calls("write") != 2 {
		t.Errorf("write calls = %d", m.Calls("write"))
	}
}

func TestMemoryFailure(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("a.md", "x", "t1")
	m.Configure(WithFailure("list", apperr.ErrNetwork))
	if _, err := m.List(ctx); !errors.Is(err, apperr.ErrNetwork) {
		t.Errorf("List = %v", err)
	}
	m.Configure(WithFailure("list", nil))
	items, err := m.List(ctx)
	if err != nil || len(items) != 1 || items[0].Token != "t1" {
		t.Errorf("List = %+v, %v", items, err)
	}
	if err := m.Delete(ctx, "a.md", "m", "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rc, _ := m.Read(ctx, "a.md"); rc != nil {
		t.Error("item survived delete")
	}
}
