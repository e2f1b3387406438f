package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router bundles the handlers and middleware that make up the portal.
type Router struct {
	Guard     gin.HandlerFunc
	RateLimit gin.HandlerFunc // optional, applied to /api after the guard
	Docs      *DocsHandler
	Auth      *AuthHandler
	Health    *HealthHandler
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Engine builds the gin engine. The guard runs for every route, including
// unknown paths.
func (rt *Router) Engine() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(securityHeaders)
	r.Use(rt.Guard)

	if rt.Health != nil {
		rt.Health.Register(r)
	}
	if rt.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{})))
	}
	RegisterSwagger(r)
	if rt.Auth != nil {
		rt.Auth.Register(r)
	}
	rt.Docs.RegisterPages(r)

	api := r.Group("/api")
	if rt.RateLimit != nil {
		api.Use(rt.RateLimit)
	}
	rt.Docs.RegisterAPI(api)
	return r
}

func securityHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "same-origin")
	if c.Request.Method == http.MethodGet && c.Request.URL.Path != "/swagger/index.html" {
		h.Set("Cache-Control", "no-store")
	}
	c.Next()
}
