package parser

import "testing"

func TestParseFrontmatterTitle(t *testing.T) {
	r := Parse("---\ntitle: Groceries\ntags:\n  - home\n---\nmilk\neggs #errand\n")
	if r.Title != "Groceries" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Preview != "milk" {
		t.Errorf("preview = %q", r.Preview)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "home" || r.Tags[1] != "errand" {
		t.Errorf("tags = %v", r.Tags)
	}
	if r.Body != "milk\neggs #errand\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParseFirstLineTitle(t *testing.T) {
	r := Parse("\n\n## Standup notes\n\n- shipped sync\n")
	if r.Title != "Standup notes" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Preview != "- shipped sync" {
		t.Errorf("preview = %q", r.Preview)
	}
	if r.Frontmatter != nil {
		t.Errorf("frontmatter = %v", r.Frontmatter)
	}
}

func TestParsePlainText(t *testing.T) {
	r := Parse("call the bank")
	if r.Title != "call the bank" || r.Preview != "" {
		t.Errorf("result = %+v", r)
	}
}

func TestParseInvalidYAMLFallsBack(t *testing.T) {
	body := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse(body)
	if r.Frontmatter != nil {
		t.Error("expected nil frontmatter on invalid YAML")
	}
	if r.Body != body {
		t.Errorf("body = %q", r.Body)
	}
}

func TestTitleFallback(t *testing.T) {
	if got := Title("   \n\n", "memo-20240101-000000"); got != "memo-20240101-000000" {
		t.Errorf("empty body title = %q", got)
	}
	if got := Title("#\n", "memo-1"); got != "memo-1" {
		t.Errorf("bare heading title = %q", got)
	}
}
