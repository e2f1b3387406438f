package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/content"
	"github.com/insideadapt/kb-portal/internal/search"
	"github.com/insideadapt/kb-portal/pkg/middleware"
)

const (
	defaultRecent = 5
	maxRecent     = 50
)

// Content is the read side of the content store.
type Content interface {
	ListSections() []*content.Section
	Section(slug string) (*content.Section, bool)
	ListDocuments(sectionSlug string) []*content.Document
	GetDocument(slug string) (*content.Document, error)
	ListAll(role access.Role) []*content.Document
	Navigation(role access.Role) []content.NavSection
	RecentlyUpdated(limit int, role access.Role) []*content.Document
}

// Searcher runs role-filtered queries.
type Searcher interface {
	Search(query string, role access.Role) []search.Result
}

// DocsHandler serves knowledge-base pages and the JSON API.
type DocsHandler struct {
	store    Content
	searcher Searcher
}

func NewDocsHandler(store Content, s Searcher) *DocsHandler {
	return &DocsHandler{store: store, searcher: s}
}

// RegisterPages adds the HTML routes.
func (h *DocsHandler) RegisterPages(r *gin.Engine) {
	r.GET("/", h.Home)
	r.GET("/landing", h.Landing)
	r.GET("/docs/*slug", h.DocPage)
	r.GET("/billing", h.BillingPage)
	r.GET("/billing/*slug", h.BillingPage)
	r.GET("/search", h.SearchPage)
	r.GET("/403", h.Denied)
	r.GET("/404", h.NotFound)
	r.GET("/auth/signin", h.SignInPage)
	r.GET("/auth/error", h.AuthErrorPage)
	r.NoRoute(h.NotFound)
}

// RegisterAPI adds the JSON routes.
func (h *DocsHandler) RegisterAPI(rg *gin.RouterGroup) {
	rg.GET("/docs/*slug", h.GetDocument)
	rg.GET("/navigation", h.Navigation)
	rg.GET("/sections", h.Sections)
	rg.GET("/search", h.Search)
	rg.GET("/recent", h.Recent)
	rg.GET("/billing", h.Billing)
	rg.GET("/me", h.Me)
}

func (h *DocsHandler) Home(c *gin.Context) {
	id, role := identity(c)
	if id == nil {
		h.Landing(c)
		return
	}
	c.HTML(http.StatusOK, "home.tmpl", page(c, "Home", gin.H{
		"Nav":      h.store.Navigation(role),
		"Sections": visibleSections(h.store.ListSections(), role),
		"Recent":   h.store.RecentlyUpdated(defaultRecent, role),
	}))
}

func (h *DocsHandler) Landing(c *gin.Context) {
	c.HTML(http.StatusOK, "landing.tmpl", page(c, "", nil))
}

// DocPage renders a section index for "/docs/<section>" and a document for
// "/docs/<section>/<page>".
func (h *DocsHandler) DocPage(c *gin.Context) {
	_, role := identity(c)
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if !strings.Contains(slug, "/") {
		h.sectionPage(c, slug, role)
		return
	}
	h.renderDocument(c, slug, role)
}

func (h *DocsHandler) sectionPage(c *gin.Context, slug string, role access.Role) {
	sec, ok := h.store.Section(slug)
	if !ok {
		h.NotFound(c)
		return
	}
	if !access.IsVisible(sec, role) {
		c.Redirect(http.StatusFound, middleware.DeniedPath)
		return
	}
	c.HTML(http.StatusOK, "section.tmpl", page(c, sec.Title, gin.H{
		"Nav":       h.store.Navigation(role),
		"Section":   sec,
		"Documents": access.FilterVisible(h.store.ListDocuments(slug), role),
	}))
}

func (h *DocsHandler) renderDocument(c *gin.Context, slug string, role access.Role) {
	doc, err := h.store.GetDocument(slug)
	if err != nil {
		h.NotFound(c)
		return
	}
	if !access.IsVisible(doc, role) {
		c.Redirect(http.StatusFound, middleware.DeniedPath)
		return
	}
	var sec *content.Section
	if s, ok := h.store.Section(doc.Section); ok {
		sec = s
	}
	c.HTML(http.StatusOK, "document.tmpl", page(c, doc.Title, gin.H{
		"Nav":      h.store.Navigation(role),
		"Section":  sec,
		"Doc":      doc,
		"Headings": content.ExtractHeadings(doc.Body),
		"Blocks":   content.SplitAtHeadings(doc.Body),
	}))
}

// BillingPage lists billing documents or renders one from the restricted area.
// The guard has already required the billing role.
func (h *DocsHandler) BillingPage(c *gin.Context) {
	_, role := identity(c)
	slug := strings.Trim(c.Param("slug"), "/")
	if slug != "" {
		h.renderDocument(c, content.RestrictedSection+"/"+slug, role)
		return
	}
	c.HTML(http.StatusOK, "billing.tmpl", page(c, "Billing", gin.H{
		"Nav":       h.store.Navigation(role),
		"Documents": billingDocuments(h.store.ListAll(role)),
	}))
}

func (h *DocsHandler) SearchPage(c *gin.Context) {
	_, role := identity(c)
	q := c.Query("q")
	c.HTML(http.StatusOK, "search.tmpl", page(c, "Search", gin.H{
		"Nav":     h.store.Navigation(role),
		"Query":   q,
		"Results": h.searcher.Search(q, role),
	}))
}

// Denied never receives navigation or document data.
func (h *DocsHandler) Denied(c *gin.Context) {
	c.HTML(http.StatusForbidden, "denied.tmpl", page(c, "Access denied", nil))
}

func (h *DocsHandler) NotFound(c *gin.Context) {
	if middleware.IsAPIPath(c.Request.URL.Path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.HTML(http.StatusNotFound, "notfound.tmpl", page(c, "Not found", nil))
}

func (h *DocsHandler) SignInPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signin.tmpl", page(c, "Sign in", gin.H{
		"CallbackURL": safeCallback(c.Query("callbackUrl")),
	}))
}

func (h *DocsHandler) AuthErrorPage(c *gin.Context) {
	c.HTML(http.StatusUnauthorized, "autherror.tmpl", page(c, "Sign-in failed", nil))
}

// GetDocument answers 404 for unknown slugs and 403 for documents the caller
// may not see.
func (h *DocsHandler) GetDocument(c *gin.Context) {
	_, role := identity(c)
	doc, err := h.store.GetDocument(c.Param("slug"))
	if errors.Is(err, content.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !access.IsVisible(doc, role) {
		c.JSON(http.StatusForbidden, gin.H{"error": middleware.ForbiddenMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "headings": content.ExtractHeadings(doc.Body)})
}

func (h *DocsHandler) Navigation(c *gin.Context) {
	_, role := identity(c)
	c.JSON(http.StatusOK, gin.H{"sections": h.store.Navigation(role)})
}

func (h *DocsHandler) Sections(c *gin.Context) {
	_, role := identity(c)
	c.JSON(http.StatusOK, gin.H{"sections": visibleSections(h.store.ListSections(), role)})
}

func (h *DocsHandler) Search(c *gin.Context) {
	_, role := identity(c)
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusOK, gin.H{"results": []search.Result{}})
		return
	}
	results := h.searcher.Search(q, role)
	c.JSON(http.StatusOK, gin.H{"results": results, "query": q, "total": len(results)})
}

func (h *DocsHandler) Recent(c *gin.Context) {
	_, role := identity(c)
	limit := defaultRecent
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecent)
	}
	c.JSON(http.StatusOK, gin.H{"documents": h.store.RecentlyUpdated(limit, role)})
}

// Billing is reachable only with the billing role; the guard rejects others.
func (h *DocsHandler) Billing(c *gin.Context) {
	id, role := identity(c)
	if role != access.RoleBilling {
		c.JSON(http.StatusForbidden, gin.H{"error": middleware.ForbiddenMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Billing access granted",
		"email":     id.Email,
		"documents": billingDocuments(h.store.ListAll(role)),
	})
}

func (h *DocsHandler) Me(c *gin.Context) {
	id, role := identity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":            id.Email,
		"name":             id.Name,
		"role":             role,
		"canAccessBilling": role == access.RoleBilling,
	})
}

func visibleSections(in []*content.Section, role access.Role) []*content.Section {
	return access.FilterVisible(in, role)
}

func billingDocuments(docs []*content.Document) []*content.Document {
	out := []*content.Document{}
	for _, d := range docs {
		if d.Access == access.TagBilling {
			out = append(out, d)
		}
	}
	return out
}
