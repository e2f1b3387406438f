package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/sessions"
	"github.com/insideadapt/kb-portal/internal/tokens"
)

// ProfileVerifier verifies a raw ID token and returns the identity it carries.
type ProfileVerifier interface {
	VerifyProfile(ctx context.Context, raw string) (access.Profile, error)
}

// SessionValidator looks up a server-side session by ID.
type SessionValidator interface {
	ValidateSession(ctx context.Context, id string) (*sessions.Session, error)
}

var errNoCredentials = errors.New("no credentials")

const identityKey = "identity"

// Identity is the authenticated caller. Role is resolved from Email on every
// request; a role cached in the session token is never trusted.
type Identity struct {
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      access.Role `json:"role"`
	SessionID string      `json:"-"`
	Method    string      `json:"method"`
}

// IdentityFromContext returns the identity set by RouteGuard, if any.
func IdentityFromContext(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok && id != nil
}

// SetIdentity stores id on the request context.
func SetIdentity(c *gin.Context, id *Identity) {
	c.Set(identityKey, id)
}

// Authenticator extracts an Identity from a session cookie or a Bearer ID token.
type Authenticator struct {
	Resolver   *access.Resolver
	Secret     string
	CookieName string
	Sessions   SessionValidator
	// Verifier is optional; without it Bearer credentials are rejected.
	Verifier ProfileVerifier
}

// Authenticate returns the caller identity or an error when no valid
// credential is present. An identity whose email resolves to no role is
// rejected.
func (a *Authenticator) Authenticate(c *gin.Context) (*Identity, error) {
	var (
		id  *Identity
		err error
	)
	if auth := c.GetHeader("Authorization"); auth != "" {
		id, err = a.fromBearer(c.Request.Context(), auth)
	} else if raw, cerr := c.Cookie(a.CookieName); cerr == nil && raw != "" {
		id, err = a.fromCookie(c.Request.Context(), raw)
	} else {
		return nil, errNoCredentials
	}
	if err != nil {
		return nil, err
	}
	id.Role = a.Resolver.Resolve(id.Email)
	if id.Role == access.RoleNone {
		return nil, fmt.Errorf("email %q is outside the organization", id.Email)
	}
	return id, nil
}

func (a *Authenticator) fromCookie(ctx context.Context, raw string) (*Identity, error) {
	claims, err := tokens.ParseSessionToken(a.Secret, raw)
	if err != nil {
		return nil, err
	}
	if a.Sessions == nil {
		return nil, errors.New("no session store configured")
	}
	sess, err := a.Sessions.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(sess.Email, claims.Email) {
		return nil, errors.New("session does not belong to token subject")
	}
	return &Identity{Email: sess.Email, Name: claims.Name, SessionID: sess.ID, Method: "session"}, nil
}

func (a *Authenticator) fromBearer(ctx context.Context, header string) (*Identity, error) {
	if a.Verifier == nil {
		return nil, errors.New("bearer tokens are not accepted")
	}
	// Expect 'Bearer <token>'
	var raw string
	if n, _ := fmt.Sscanf(header, "Bearer %s", &raw); n != 1 {
		return nil, errors.New("invalid Authorization header")
	}
	prof, err := a.Verifier.VerifyProfile(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !a.Resolver.ValidateProfile(prof) {
		return nil, errors.New("identity profile rejected")
	}
	return &Identity{Email: strings.ToLower(strings.TrimSpace(prof.Email)), Name: prof.Name, Method: "bearer"}, nil
}
