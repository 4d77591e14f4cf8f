// Package parser extracts frontmatter, title and status from decision
// record Markdown.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var statusLineRe = regexp.MustCompile(`(?i)^\s*(status|statut)\s*:\s*(.*?)\s*$`)

var md = goldmark.New()

// Result holds the output of parsing a record file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Status      string
	Tags        []string
}

// Parse extracts frontmatter, body, title, status and tags from raw
// Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	doc := md.Parser().Parse(text.NewReader([]byte(body)))
	heading, status := scanBody(doc, []byte(body))

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       firstString(fm, "title", heading),
		Status:      firstString(fm, "status", status),
		Tags:        extractTags(fm),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
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
		// Invalid YAML: whole file is body.
		return nil, string(data)
	}
	return fm, body
}

// scanBody returns the text of the first level-one heading and the value of
// the first "Status"/"Statut" list item.
func scanBody(doc ast.Node, source []byte) (heading, status string) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && heading == "" {
				heading = strings.TrimSpace(extractText(node, source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if status == "" {
				if m := statusLineRe.FindStringSubmatch(extractText(node, source)); m != nil {
					status = m[2]
				}
			}
			return ast.WalkSkipChildren, nil
		}
		if heading != "" && status != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return heading, status
}

// extractText concatenates every text segment below n.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func firstString(fm map[string]any, key, fallback string) string {
	if fm != nil {
		if s, ok := fm[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

// extractTags collects the frontmatter "tags" list, deduplicated.
func extractTags(fm map[string]any) []string {
	raw, ok := fm["tags"].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
