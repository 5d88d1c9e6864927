package models

import (
	"testing"
	"time"
)

func TestNewSlug(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	if got := NewSlug(now); got != "memo-20240101-000000" {
		t.Errorf("slug = %q", got)
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := map[string]string{
		"memo-1.md":           "memo-1",
		"data/2024/memo-2.md": "memo-2",
		"notes.v2.md":         "notes.v2",
	}
	for in, want := range cases {
		if got := SlugFromPath(in); got != want {
			t.Errorf("SlugFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNotePath(t *testing.T) {
	n := Note{Slug: "a"}
	if n.Path() != "a.md" {
		t.Errorf("default path = %q", n.Path())
	}
	n.RemotePath = "data/a.md"
	if n.Path() != "data/a.md" {
		t.Errorf("recorded path = %q", n.Path())
	}
}

func TestSettingsValidate(t *testing.T) {
	ok := Settings{Owner: "me", Repo: "memos", Token: "ghp_x"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid settings: %v", err)
	}
	bad := Settings{Owner: "me/you", Repo: "memos", Token: "x"}
	if err := bad.Validate(); err == nil {
		t.Error("owner with slash should fail")
	}
	empty := Settings{}
	if err := empty.Validate(); err == nil {
		t.Error("empty settings should fail")
	}
}

func TestSettingsMasked(t *testing.T) {
	s := Settings{Owner: "o", Repo: "r", Token: "ghp_secret1234"}
	m := s.Masked()
	if m.Token != "**********1234" {
		t.Errorf("masked = %q", m.Token)
	}
	if s.Token != "ghp_secret1234" {
		t.Error("original mutated")
	}
}
