// Package search implements case-insensitive substring search over the
// documents a role may see.
package search

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/content"
	"github.com/insideadapt/kb-portal/pkg/metrics"
)

const (
	windowBefore = 100
	windowAfter  = 200
	maxExcerpt   = 300
	ellipsis     = "..."
)

// Result is the per-query view of a matching document.
type Result struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Slug    string     `json:"slug"`
	Section string     `json:"section"`
	Excerpt string     `json:"excerpt"`
	Access  access.Tag `json:"access"`
}

func (r Result) AccessTag() access.Tag { return r.Access }

// Source supplies role-filtered candidates. *content.Store implements it.
type Source interface {
	ListAll(role access.Role) []*content.Document
	Generation() uint64
}

// Options configures the result cache. A zero CacheSize disables caching.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Service answers search queries.
type Service struct {
	src   Source
	cache *expirable.LRU[string, []Result]
}

func NewService(src Source, opts Options) *Service {
	s := &Service{src: src}
	if opts.CacheSize > 0 {
		s.cache = expirable.NewLRU[string, []Result](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// Search returns documents whose title or body contains query, in store order.
// Empty or whitespace-only queries return an empty list.
func (s *Service) Search(query string, role access.Role) []Result {
	if strings.TrimSpace(query) == "" {
		return []Result{}
	}
	key := fmt.Sprintf("%d|%s|%s", s.src.Generation(), role, query)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			metrics.SearchQueries.WithLabelValues(string(role), "hit").Inc()
			return append([]Result(nil), cached...)
		}
	}
	metrics.SearchQueries.WithLabelValues(string(role), "miss").Inc()

	results := Match(s.src.ListAll(role), query)
	// The candidate set is already filtered by role; filter again so a
	// source that ignores role can never leak billing documents.
	results = access.FilterVisible(results, role)

	if s.cache != nil {
		s.cache.Add(key, results)
	}
	return append([]Result(nil), results...)
}

// Match runs the substring predicate over docs and builds excerpts.
func Match(docs []*content.Document, query string) []Result {
	q := lowerRunes(query)
	results := []Result{}
	if len(q) == 0 {
		return results
	}
	for _, d := range docs {
		titleMatch := indexRunes(lowerRunes(d.Title), q) >= 0
		body := []rune(d.Body)
		bodyIdx := indexRunes(lowerRunes(d.Body), q)
		if !titleMatch && bodyIdx < 0 {
			continue
		}
		excerpt := d.Excerpt
		if bodyIdx >= 0 {
			excerpt = Window(body, bodyIdx)
		}
		results = append(results, Result{
			ID:      d.ID,
			Title:   d.Title,
			Slug:    d.Slug,
			Section: d.Section,
			Excerpt: Truncate(excerpt),
			Access:  d.Access,
		})
	}
	return results
}

// Window extracts up to 100 characters before and 200 after idx, clamped to
// the body, with heading markers removed.
func Window(body []rune, idx int) string {
	start := idx - windowBefore
	if start < 0 {
		start = 0
	}
	end := idx + windowAfter
	if end > len(body) {
		end = len(body)
	}
	if start > end {
		start = end
	}
	return content.StripHeadings(string(body[start:end]))
}

// Truncate caps s at 300 characters, appending an ellipsis when cut.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxExcerpt {
		return s
	}
	return string(r[:maxExcerpt]) + ellipsis
}

// lowerRunes lowercases rune by rune so indexes line up with the original text.
func lowerRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

func indexRunes(haystack, needle []rune) int {
	n := len(needle)
	if n == 0 {
		return 0
	}
outer:
	for i := 0; i+n <= len(haystack); i++ {
		for j := 0; j < n; j++ {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
