// Package parser derives display fields from a note body: frontmatter, title, preview and tags.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	headingRe = regexp.MustCompile(`^#+\s*`)
	tagRe     = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the fields derived from a note body.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Preview     string
	Tags        []string
}

// Parse never fails: a body without valid frontmatter is all content.
func Parse(body string) Result {
	fm, content := splitFrontmatter(body)
	lines := nonEmptyLines(content)

	r := Result{
		Frontmatter: fm,
		Body:        content,
		Tags:        extractTags(content, fm),
	}
	r.Title = frontmatterString(fm, "title")
	switch {
	case r.Title != "" && len(lines) > 0:
		r.Preview = strings.TrimSpace(lines[0])
	case len(lines) > 0:
		r.Title = strings.TrimSpace(headingRe.ReplaceAllString(strings.TrimSpace(lines[0]), ""))
		if len(lines) > 1 {
			r.Preview = strings.TrimSpace(lines[1])
		}
	}
	return r
}

// Title returns the display title of body, or fallback when it has none.
func Title(body, fallback string) string {
	if t := Parse(body).Title; t != "" {
		return t
	}
	return fallback
}

// splitFrontmatter separates a leading YAML block between --- lines from the content.
// Invalid YAML or a missing closing delimiter leaves the body untouched.
func splitFrontmatter(body string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(body, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, body
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, body
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return nil, body
	}
	return fm, strings.TrimLeft(rest[idx+1+len(delim):], "\n\r")
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func frontmatterString(fm map[string]any, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// extractTags collects frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if list, ok := fm["tags"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}
