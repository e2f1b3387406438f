package content

import (
	"regexp"
	"strings"
)

// Heading is a table-of-contents entry.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Block is a run of body text. Blocks after the first start at a level 2
// or 3 heading and carry its anchor ID.
type Block struct {
	ID   string
	Text string
}

var (
	headingLine  = regexp.MustCompile(`^(#{2,3})\s+(.+)$`)
	anchorStrip  = regexp.MustCompile(`[^\w\s-]`)
	anchorSpaces = regexp.MustCompile(`\s+`)
)

func parseHeading(line string) (Heading, bool) {
	m := headingLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Heading{}, false
	}
	text := strings.ReplaceAll(strings.ReplaceAll(m[2], "**", ""), "__", "")
	id := anchorSpaces.ReplaceAllString(anchorStrip.ReplaceAllString(strings.ToLower(text), ""), "-")
	return Heading{ID: id, Text: text, Level: len(m[1])}, true
}

// ExtractHeadings collects level 2 and 3 headings in document order.
func ExtractHeadings(body string) []Heading {
	out := []Heading{}
	for _, line := range strings.Split(body, "\n") {
		if h, ok := parseHeading(line); ok {
			out = append(out, h)
		}
	}
	return out
}

// SplitAtHeadings cuts body before every heading ExtractHeadings reports, so
// each table-of-contents entry has a block to link to. Joining the block
// texts gives back body.
func SplitAtHeadings(body string) []Block {
	lines := strings.SplitAfter(body, "\n")
	blocks := []Block{}
	var cur strings.Builder
	curID := ""
	for _, line := range lines {
		if h, ok := parseHeading(strings.TrimSuffix(line, "\n")); ok {
			if cur.Len() > 0 || curID != "" {
				blocks = append(blocks, Block{ID: curID, Text: cur.String()})
			}
			cur.Reset()
			curID = h.ID
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 || curID != "" {
		blocks = append(blocks, Block{ID: curID, Text: cur.String()})
	}
	return blocks
}
