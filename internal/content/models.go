package content

import (
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
)

// DefaultOrder sorts documents and sections without an explicit order last.
const DefaultOrder = 999

// RestrictedSection is the section name given to documents in the restricted area.
const RestrictedSection = "billing"

// Section groups documents under docs/<slug>/ and carries its own access tag.
type Section struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Order       int        `json:"order"`
	Description string     `json:"description,omitempty"`
	Access      access.Tag `json:"access"`
}

func (s Section) AccessTag() access.Tag { return s.Access }

// Document is one markdown page. Documents are shared between readers and
// must not be modified after loading.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Section     string     `json:"section"`
	Access      access.Tag `json:"access"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Order       int        `json:"order"`
	Body        string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
}

func (d Document) AccessTag() access.Tag { return d.Access }

// NavSection is one entry of the navigation tree.
type NavSection struct {
	Section   *Section    `json:"section"`
	Documents []*Document `json:"pages"`
}
