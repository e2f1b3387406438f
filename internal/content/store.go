// Package content loads the markdown knowledge base into memory and answers
// role-filtered queries over it.
//
// Layout under the content root:
//
//	docs/<section>/_index.md   section metadata
//	docs/<section>/<page>.md   documents
//	billing/<page>.md          restricted area, always billing
package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/pkg/logger"
	"github.com/insideadapt/kb-portal/pkg/metrics"
)

var ErrNotFound = errors.New("document not found")

const (
	docsDir       = "docs"
	restrictedDir = "billing"
	sectionIndex  = "_index.md"
)

type snapshot struct {
	generation   uint64
	loadedAt     time.Time
	sections     []*Section
	sectionIndex map[string]*Section
	bySection    map[string][]*Document
	bySlug       map[string]*Document
	restricted   []*Document
	restrictedBy map[string]*Document
}

func emptySnapshot() *snapshot {
	return &snapshot{
		sectionIndex: map[string]*Section{},
		bySection:    map[string][]*Document{},
		bySlug:       map[string]*Document{},
		restrictedBy: map[string]*Document{},
	}
}

// Store holds an immutable snapshot of the content tree. Reload swaps the
// snapshot atomically; readers always see one complete tree.
type Store struct {
	root string
	now  func() time.Time

	reloadMu sync.Mutex
	gen      atomic.Uint64
	snap     atomic.Pointer[snapshot]
}

// NewStore creates a store rooted at dir and loads it. A missing directory
// yields an empty store.
func NewStore(ctx context.Context, dir string) (*Store, error) {
	s := &Store{root: dir, now: time.Now}
	s.snap.Store(emptySnapshot())
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the content directory.
func (s *Store) Root() string { return s.root }

// Generation increases on every successful reload.
func (s *Store) Generation() uint64 { return s.snap.Load().generation }

// LoadedAt is the time the current snapshot was built.
func (s *Store) LoadedAt() time.Time { return s.snap.Load().loadedAt }

// Reload re-reads the content tree. Unreadable or malformed files are skipped.
// Only context cancellation is reported as an error.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		metrics.ContentReloads.WithLabelValues("error").Inc()
		return err
	}
	snap.generation = s.gen.Add(1)
	s.snap.Store(snap)

	count := len(snap.bySlug) + len(snap.restricted)
	metrics.ContentReloads.WithLabelValues("ok").Inc()
	metrics.ContentDocuments.Set(float64(count))
	logger.Infof("content loaded: root=%s sections=%d documents=%d generation=%d", s.root, len(snap.sections), count, snap.generation)
	return nil
}

func (s *Store) load(ctx context.Context) (*snapshot, error) {
	snap := emptySnapshot()
	snap.loadedAt = s.now()

	docsPath := filepath.Join(s.root, docsDir)
	entries, err := os.ReadDir(docsPath)
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("content: cannot read %s: %v", docsPath, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		slug := entry.Name()
		sectionPath := filepath.Join(docsPath, slug)
		sec := s.loadSection(sectionPath, slug)
		if sec != nil {
			snap.sections = append(snap.sections, sec)
			snap.sectionIndex[slug] = sec
		}
		docs := s.loadDir(sectionPath, slug, snap.loadedAt)
		for _, d := range docs {
			if sec != nil && sec.Access == access.TagBilling {
				d.Access = access.TagBilling
			}
			snap.bySlug[d.Slug] = d
		}
		snap.bySection[slug] = docs
	}
	sortSections(snap.sections)

	snap.restricted = s.loadDir(filepath.Join(s.root, restrictedDir), RestrictedSection, snap.loadedAt)
	for _, d := range snap.restricted {
		d.Access = access.TagBilling
		snap.restrictedBy[strings.TrimPrefix(d.Slug, RestrictedSection+"/")] = d
	}
	return snap, nil
}

func (s *Store) loadSection(dir, slug string) *Section {
	raw, err := os.ReadFile(filepath.Join(dir, sectionIndex))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("content: cannot read section index %s: %v", dir, err)
		}
		return nil
	}
	fm, _, err := parseFile(raw)
	if err != nil {
		logger.Warnf("content: skipping section %s: %v", slug, err)
		return nil
	}
	sec := &Section{
		ID:          slug,
		Title:       fm.Title,
		Slug:        slug,
		Order:       orderOrDefault(fm.Order),
		Description: fm.Description,
		Access:      access.ParseTag(fm.Access),
	}
	if sec.Title == "" {
		sec.Title = slug
	}
	return sec
}

// loadDir reads every *.md file (except the section index) in dir.
func (s *Store) loadDir(dir, section string, now time.Time) []*Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("content: cannot read %s: %v", dir, err)
		}
		return nil
	}
	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") || name == sectionIndex {
			continue
		}
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warnf("content: cannot read %s: %v", path, err)
			continue
		}
		fm, body, err := parseFile(raw)
		if err != nil {
			logger.Warnf("content: skipping %s: %v", path, err)
			continue
		}
		stem := strings.TrimSuffix(name, ".md")
		d := &Document{
			ID:          fm.ID,
			Title:       fm.Title,
			Slug:        section + "/" + stem,
			Section:     section,
			Access:      access.ParseTag(fm.Access),
			LastUpdated: parseDate(fm.LastUpdated, now),
			Order:       orderOrDefault(fm.Order),
			Body:        body,
			Excerpt:     fm.Excerpt,
		}
		if d.ID == "" {
			d.ID = stem
		}
		if d.Title == "" {
			d.Title = stem
		}
		if d.Excerpt == "" {
			d.Excerpt = defaultExcerpt(body)
		}
		docs = append(docs, d)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Order < docs[j].Order })
	return docs
}

func sortSections(in []*Section) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Order < in[j].Order })
}

// ListSections returns every section ordered by Order.
func (s *Store) ListSections() []*Section {
	snap := s.snap.Load()
	out := make([]*Section, len(snap.sections))
	copy(out, snap.sections)
	return out
}

// Section looks up a section by slug.
func (s *Store) Section(slug string) (*Section, bool) {
	sec, ok := s.snap.Load().sectionIndex[slug]
	return sec, ok
}

// ListDocuments returns the documents of a section ordered by Order.
func (s *Store) ListDocuments(sectionSlug string) []*Document {
	docs := s.snap.Load().bySection[sectionSlug]
	out := make([]*Document, len(docs))
	copy(out, docs)
	return out
}

// GetDocument resolves "section/page". The section-qualified path is tried
// first, then the restricted area by page name.
func (s *Store) GetDocument(slug string) (*Document, error) {
	slug = strings.Trim(slug, "/")
	section, page, ok := strings.Cut(slug, "/")
	if !ok || section == "" || page == "" {
		return nil, ErrNotFound
	}
	snap := s.snap.Load()
	if d, ok := snap.bySlug[section+"/"+page]; ok {
		return d, nil
	}
	if d, ok := snap.restrictedBy[page]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

// ListAll returns every document visible to role, in section then document
// order. The restricted area is appended for billing callers only.
func (s *Store) ListAll(role access.Role) []*Document {
	snap := s.snap.Load()
	out := []*Document{}
	for _, sec := range snap.sections {
		if !access.IsVisible(sec, role) {
			continue
		}
		out = append(out, access.FilterVisible(snap.bySection[sec.Slug], role)...)
	}
	if role == access.RoleBilling {
		out = append(out, snap.restricted...)
	}
	return out
}

// Navigation builds the section tree for role. A billing section is skipped
// entirely for non-billing roles; documents are then filtered on their own tag.
func (s *Store) Navigation(role access.Role) []NavSection {
	snap := s.snap.Load()
	nav := []NavSection{}
	for _, sec := range snap.sections {
		if !access.IsVisible(sec, role) {
			continue
		}
		nav = append(nav, NavSection{Section: sec, Documents: access.FilterVisible(snap.bySection[sec.Slug], role)})
	}
	return nav
}

// RecentlyUpdated returns up to limit visible documents, newest first.
func (s *Store) RecentlyUpdated(limit int, role access.Role) []*Document {
	docs := s.ListAll(role)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].LastUpdated.After(docs[j].LastUpdated) })
	if limit >= 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
