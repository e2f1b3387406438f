package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portal API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>kb-portal - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "kb-portal", "version": "v1.0.0" },
  "components": {
    "securitySchemes": {
      "session": { "type": "apiKey", "in": "cookie", "name": "kb_session" },
      "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "Google ID token" }
    }
  },
  "security": [ { "session": [] }, { "bearer": [] } ],
  "paths": {
    "/api/docs/{section}/{page}": {
      "get": {
        "summary": "Get a document with its headings",
        "parameters": [
          { "name": "section", "in": "path", "required": true, "schema": { "type": "string" } },
          { "name": "page", "in": "path", "required": true, "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "document" }, "401": { "description": "no session" }, "403": { "description": "billing access required" }, "404": { "description": "document not found" } }
      }
    },
    "/api/navigation": { "get": { "summary": "Section tree visible to the caller", "responses": { "200": { "description": "sections with pages" } } } },
    "/api/sections": { "get": { "summary": "Sections visible to the caller", "responses": { "200": { "description": "sections" } } } },
    "/api/search": {
      "get": {
        "summary": "Case-insensitive search over visible documents",
        "parameters": [ { "name": "q", "in": "query", "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "results, query, total" } }
      }
    },
    "/api/recent": {
      "get": {
        "summary": "Recently updated documents",
        "parameters": [ { "name": "limit", "in": "query", "schema": { "type": "integer", "minimum": 1, "maximum": 50 } } ],
        "responses": { "200": { "description": "documents" }, "400": { "description": "invalid limit" } }
      }
    },
    "/api/billing": { "get": { "summary": "Billing area", "responses": { "200": { "description": "granted" }, "403": { "description": "billing access required" } } } },
    "/api/me": { "get": { "summary": "Current identity and role", "responses": { "200": { "description": "identity" }, "401": { "description": "no session" } } } },
    "/api/auth/signin/google": { "get": { "summary": "Start Google sign-in", "parameters": [ { "name": "callbackUrl", "in": "query", "schema": { "type": "string" } } ], "responses": { "302": { "description": "redirect to provider" } } } },
    "/api/auth/callback/google": { "get": { "summary": "OAuth callback", "responses": { "302": { "description": "signed in or error page" } } } },
    "/api/auth/signout": { "post": { "summary": "Sign out", "responses": { "200": { "description": "signed out" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
