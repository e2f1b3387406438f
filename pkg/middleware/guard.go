package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/pkg/logger"
	"github.com/insideadapt/kb-portal/pkg/metrics"
)

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	Allow Decision = iota
	RedirectSignIn
	Unauthorized
	Forbidden
	RedirectDenied
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect_signin"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case RedirectDenied:
		return "redirect_denied"
	}
	return "unknown"
}

const (
	SignInPath = "/auth/signin"
	DeniedPath = "/403"

	ForbiddenMessage = "Forbidden - Billing access required"
)

// publicPaths are served without credentials. /health and /ready answer
// orchestrator probes; /metrics and /swagger require a session.
var publicPaths = map[string]struct{}{
	"/":             {},
	"/landing":      {},
	"/auth/signin":  {},
	"/auth/signout": {},
	"/auth/error":   {},
	"/403":          {},
	"/404":          {},
	"/health":       {},
	"/ready":        {},
}

var publicPrefixes = []string{"/landing/", "/api/auth/"}

// billingPrefixes are matched case-sensitively as plain prefixes.
var billingPrefixes = []string{"/billing", "/docs/billing", "/api/billing"}

// IsPublic reports whether path is served without credentials.
func IsPublic(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsBillingPath reports whether path requires the billing role.
func IsBillingPath(path string) bool {
	for _, p := range billingPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether failures on path are answered with JSON.
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// Decide is the pure guard decision for path. A none role counts as
// unauthenticated.
func Decide(path string, authenticated bool, role access.Role) Decision {
	if IsPublic(path) {
		return Allow
	}
	api := IsAPIPath(path)
	if !authenticated || (role != access.RoleMember && role != access.RoleBilling) {
		if api {
			return Unauthorized
		}
		return RedirectSignIn
	}
	if IsBillingPath(path) && role != access.RoleBilling {
		if api {
			return Forbidden
		}
		return RedirectDenied
	}
	return Allow
}

// SignInURL returns the sign-in page that returns the caller to target afterwards.
func SignInURL(target string) string {
	return SignInPath + "?callbackUrl=" + url.QueryEscape(target)
}

// RouteGuard authenticates every request and enforces Decide. The identity,
// when present, is stored on the context for handlers.
func RouteGuard(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		id, err := a.Authenticate(c)
		if err != nil && err != errNoCredentials {
			logger.Debugf("guard: credentials rejected path=%s: %v", path, err)
		}
		role := access.RoleNone
		if id != nil {
			role = id.Role
		}

		d := Decide(path, id != nil, role)
		metrics.GuardDecisions.WithLabelValues(d.String()).Inc()

		switch d {
		case RedirectSignIn:
			c.Redirect(http.StatusFound, SignInURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		case Unauthorized:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		case Forbidden:
			logger.Warnf("billing access denied: email=%s role=%s path=%s", id.Email, id.Role, path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ForbiddenMessage})
			return
		case RedirectDenied:
			logger.Warnf("billing access denied: email=%s role=%s path=%s", id.Email, id.Role, path)
			c.Redirect(http.StatusFound, DeniedPath)
			c.Abort()
			return
		}

		if id != nil {
			SetIdentity(c, id)
		}
		c.Next()
	}
}
