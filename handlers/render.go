package handlers

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/pkg/middleware"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the page templates. Markdown is shown verbatim; html/template
// escapes it.
func Templates() *template.Template {
	return template.Must(template.New("pages").ParseFS(templateFS, "templates/*.tmpl"))
}

// identity returns the caller identity and role; role is none when the
// request is anonymous.
func identity(c *gin.Context) (*middleware.Identity, access.Role) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		return nil, access.RoleNone
	}
	return id, id.Role
}

// page builds the common template data.
func page(c *gin.Context, title string, extra gin.H) gin.H {
	id, _ := identity(c)
	data := gin.H{"Title": title, "Identity": id}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
