// Package parser extracts frontmatter, title, tags, and checkbox tasks from note content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quire/internal/tasks"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string // without the leading '#'
	Title       string
	Tasks       []tasks.Task
}

// Parse extracts frontmatter, body, tags, title and task lines from raw note bytes.
// Task line numbers refer to the whole file, frontmatter included.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
		Tasks:       tasks.Parse(string(data)),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no valid frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractTags collects tags from the frontmatter "tags" field and inline #tags in the body,
// in that order, without duplicates.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
				add(s)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if s, ok := fm["title"].(string); ok && s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
