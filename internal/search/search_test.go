package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/content"
	"github.com/stretchr/testify/require"
)

// leakySource ignores role and returns everything.
type leakySource struct {
	docs []*content.Document
	gen  uint64
	hits int
}

func (l *leakySource) ListAll(access.Role) []*content.Document {
	l.hits++
	return l.docs
}
func (l *leakySource) Generation() uint64 { return l.gen }

func doc(slug, title, body string, tag access.Tag) *content.Document {
	return &content.Document{ID: slug, Slug: slug, Title: title, Body: body, Access: tag, Excerpt: "precomputed"}
}

func newStore(t *testing.T) *content.Store {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"docs/compliance/_index.md":       "---\ntitle: Compliance\norder: 1\n---\n",
		"docs/compliance/hipaa.md":        "---\ntitle: Privacy Rules\n---\nEvery employee completes HIPAA training yearly.\n",
		"docs/compliance/claims-audit.md": "---\ntitle: Claims\naccess: billing\n---\nHIPAA applies to claims data.\n",
		"billing/payers.md":               "Payer HIPAA contacts.\n",
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	s, err := content.NewStore(context.Background(), root)
	require.NoError(t, err)
	return s
}

func resultSlugs(rs []Result) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.Slug)
	}
	return out
}

func TestSearch_HIPAAScenario(t *testing.T) {
	svc := NewService(newStore(t), Options{})

	member := svc.Search("HIPAA", access.RoleMember)
	require.Equal(t, []string{"compliance/hipaa"}, resultSlugs(member))

	billing := svc.Search("hipaa", access.RoleBilling)
	require.Equal(t, []string{"compliance/claims-audit", "compliance/hipaa", "billing/payers"}, resultSlugs(billing))

	require.Empty(t, svc.Search("HIPAA", access.RoleNone))
}

func TestSearch_EmptyQuery(t *testing.T) {
	src := &leakySource{docs: []*content.Document{doc("a/b", "T", "body", access.TagAll)}}
	svc := NewService(src, Options{})
	for _, q := range []string{"", "   ", "\t\n"} {
		got := svc.Search(q, access.RoleMember)
		require.NotNil(t, got)
		require.Empty(t, got)
	}
	require.Zero(t, src.hits)
}

func TestSearch_DefenseInDepthFilter(t *testing.T) {
	src := &leakySource{docs: []*content.Document{
		doc("a/open", "Open", "shared word", access.TagAll),
		doc("a/secret", "Secret", "shared word", access.TagBilling),
	}}
	svc := NewService(src, Options{})
	require.Equal(t, []string{"a/open"}, resultSlugs(svc.Search("shared", access.RoleMember)))
	require.Equal(t, []string{"a/open", "a/secret"}, resultSlugs(svc.Search("shared", access.RoleBilling)))
	require.Empty(t, svc.Search("shared", access.RoleNone))
}

func TestMatch_TitleOnlyUsesPrecomputedExcerpt(t *testing.T) {
	rs := Match([]*content.Document{doc("a/b", "Onboarding Guide", "nothing relevant", access.TagAll)}, "GUIDE")
	require.Len(t, rs, 1)
	require.Equal(t, "precomputed", rs[0].Excerpt)
}

func TestMatch_ExcerptWindowBounds(t *testing.T) {
	before := strings.Repeat("a", 150)
	after := strings.Repeat("b", 250)
	body := before + "NEEDLE" + after
	rs := Match([]*content.Document{doc("a/b", "T", body, access.TagAll)}, "needle")
	require.Len(t, rs, 1)
	want := strings.Repeat("a", 100) + "NEEDLE" + strings.Repeat("b", 194)
	require.Equal(t, want, rs[0].Excerpt)
}

func TestMatch_ExcerptClampedAtEdges(t *testing.T) {
	body := "xyz NEEDLE tail"
	rs := Match([]*content.Document{doc("a/b", "T", body, access.TagAll)}, "needle")
	require.Equal(t, body, rs[0].Excerpt)

	body = strings.Repeat("c", 40) + "needle"
	rs = Match([]*content.Document{doc("a/b", "T", body, access.TagAll)}, "NEEDLE")
	require.Equal(t, body, rs[0].Excerpt)
}

func TestMatch_ExcerptUnicodeOffsets(t *testing.T) {
	before := strings.Repeat("é", 120)
	body := before + "Ünïcode" + strings.Repeat("ß", 10)
	rs := Match([]*content.Document{doc("a/b", "T", body, access.TagAll)}, "üNÏ")
	require.Len(t, rs, 1)
	require.Equal(t, strings.Repeat("é", 100)+"Ünïcode"+strings.Repeat("ß", 10), rs[0].Excerpt)
}

func TestMatch_FirstMatchAndHeadingStrip(t *testing.T) {
	body := "## Heading\nfirst needle here\n## Other\nsecond needle"
	rs := Match([]*content.Document{doc("a/b", "T", body, access.TagAll)}, "needle")
	require.Equal(t, "first needle here\nsecond needle", rs[0].Excerpt)
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("x", 300)
	require.Equal(t, short, Truncate(short))
	long := strings.Repeat("y", 301)
	require.Equal(t, strings.Repeat("y", 300)+"...", Truncate(long))
}

func TestWindow_Clamp(t *testing.T) {
	body := []rune("0123456789")
	require.Equal(t, "0123456789", Window(body, 5))
	require.Equal(t, "", Window([]rune{}, 0))
}

func TestSearch_CacheKeyedByGenerationAndRole(t *testing.T) {
	src := &leakySource{gen: 1, docs: []*content.Document{doc("a/b", "T", "cache me", access.TagAll)}}
	svc := NewService(src, Options{CacheSize: 16, CacheTTL: time.Minute})

	require.Len(t, svc.Search("cache", access.RoleMember), 1)
	require.Len(t, svc.Search("cache", access.RoleMember), 1)
	require.Equal(t, 1, src.hits, "second query served from cache")

	require.Len(t, svc.Search("cache", access.RoleBilling), 1)
	require.Equal(t, 2, src.hits, "roles never share cache entries")

	src.docs = nil
	src.gen = 2
	require.Empty(t, svc.Search("cache", access.RoleMember))
	require.Equal(t, 3, src.hits)
}

func TestSearch_CachedResultsAreCopies(t *testing.T) {
	src := &leakySource{gen: 1, docs: []*content.Document{doc("a/b", "T", "copy", access.TagAll)}}
	svc := NewService(src, Options{CacheSize: 4, CacheTTL: time.Minute})
	first := svc.Search("copy", access.RoleMember)
	first[0].Title = "mutated"
	second := svc.Search("copy", access.RoleMember)
	require.Equal(t, "T", second[0].Title)
}
