package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	LastUpdated string `yaml:"lastUpdated"`
	Access      string `yaml:"access"`
	Order       *int   `yaml:"order"`
	Excerpt     string `yaml:"excerpt"`
	Description string `yaml:"description"`
}

const excerptLength = 200

var headingMarker = regexp.MustCompile(`#.*\n`)

// parseFile splits a markdown file into its YAML header and body.
// Files without a header have empty metadata.
func parseFile(raw []byte) (frontMatter, string, error) {
	var fm frontMatter
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	if !strings.HasPrefix(text, "---\n") {
		return fm, text, nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	var header, body string
	switch {
	case strings.HasPrefix(rest, "---\n"):
		body = rest[len("---\n"):]
	case rest == "---":
	case end >= 0:
		header, body = rest[:end], rest[end+len("\n---\n"):]
	case strings.HasSuffix(rest, "\n---"):
		header = strings.TrimSuffix(rest, "\n---")
	default:
		return fm, text, nil
	}
	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
			return frontMatter{}, "", fmt.Errorf("frontmatter: %w", err)
		}
	}
	return fm, body, nil
}

// defaultExcerpt returns the first 200 characters of body with heading lines stripped.
func defaultExcerpt(body string) string {
	r := []rune(body)
	if len(r) > excerptLength {
		r = r[:excerptLength]
	}
	return StripHeadings(string(r))
}

// StripHeadings removes heading markers up to the end of their line.
func StripHeadings(s string) string {
	return headingMarker.ReplaceAllString(s, "")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func orderOrDefault(o *int) int {
	if o == nil {
		return DefaultOrder
	}
	return *o
}
