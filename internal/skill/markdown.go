package skill

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// Frontmatter is the YAML header of a skill markdown document.
type Frontmatter struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Tags        []string  `yaml:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
}

// Document is a parsed skill markdown file: frontmatter plus body.
type Document struct {
	Frontmatter Frontmatter
	Body        string
}

// ParseDocument splits a markdown document into YAML frontmatter and body.
// A document without a frontmatter block parses as body-only with an empty
// header rather than failing.
func ParseDocument(raw string) (*Document, error) {
	doc := &Document{}
	trimmed := strings.TrimLeft(raw, "\n\r ")
	if !strings.HasPrefix(trimmed, frontmatterDelim) {
		doc.Body = raw
		return doc, nil
	}

	rest := strings.TrimPrefix(trimmed, frontmatterDelim)
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return nil, fmt.Errorf("unterminated frontmatter block")
	}
	header := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelim):]
	body = strings.TrimPrefix(body, frontmatterDelim)
	body = strings.TrimLeft(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &doc.Frontmatter); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	doc.Body = body
	return doc, nil
}

// RenderDocument generates the canonical markdown form of a skill from its
// draft fields. When the draft carries explicit content, that content becomes
// the body verbatim; otherwise the body is assembled from the structured
// prerequisite/step/example lists.
func RenderDocument(d *Draft, createdAt time.Time) (string, error) {
	fm := Frontmatter{
		Name:        d.Name,
		Description: d.Description,
		Tags:        d.Tags,
		CreatedAt:   createdAt.UTC(),
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("render frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelim + "\n")
	b.Write(header)
	b.WriteString(frontmatterDelim + "\n\n")

	if strings.TrimSpace(d.Content) != "" {
		b.WriteString(strings.TrimSpace(d.Content))
		b.WriteString("\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "# %s\n\n%s\n", d.Name, d.Description)
	writeSection(&b, "Prerequisites", d.Prerequisites, false)
	writeSection(&b, "Steps", d.Steps, true)
	writeSection(&b, "Examples", d.Examples, false)
	return b.String(), nil
}

func writeSection(b *strings.Builder, title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(b, "- %s\n", item)
		}
	}
}
