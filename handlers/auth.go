package handlers

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/config"
	"github.com/insideadapt/kb-portal/internal/sessions"
	"github.com/insideadapt/kb-portal/internal/tokens"
	"github.com/insideadapt/kb-portal/internal/users"
	"github.com/insideadapt/kb-portal/pkg/logger"
)

const (
	stateCookie    = "kb_oauth_state"
	callbackCookie = "kb_oauth_callback"
	authCookiePath = "/api/auth"
	stateMaxAge    = 600

	authErrorPath = "/auth/error"
)

// Provider is the identity provider used for the authorization-code flow.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (access.Profile, error)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	provider    Provider
	resolver    *access.Resolver
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg *config.Config, p Provider, r *access.Resolver, u *users.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, provider: p, resolver: r, usersSvc: u, sessionsSvc: s}
}

// Register adds the sign-in, callback and sign-out routes.
func (h *AuthHandler) Register(r gin.IRoutes) {
	r.GET("/api/auth/signin/google", h.SignIn)
	r.GET("/api/auth/callback/google", h.Callback)
	r.GET("/auth/signout", h.SignOut)
	r.POST("/api/auth/signout", h.SignOut)
}

// SignIn redirects to the provider consent page. The callback URL survives
// the round trip in a short-lived cookie next to the state.
func (h *AuthHandler) SignIn(c *gin.Context) {
	if h.provider == nil {
		logger.Errorf("sign-in requested but no identity provider is configured")
		c.Redirect(http.StatusFound, authErrorPath)
		return
	}
	state, err := randomState()
	if err != nil {
		logger.Errorf("failed to generate oauth state: %v", err)
		c.Redirect(http.StatusFound, authErrorPath)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateMaxAge, authCookiePath, "", h.cfg.Session.Secure, true)
	c.SetCookie(callbackCookie, safeCallback(c.Query("callbackUrl")), stateMaxAge, authCookiePath, "", h.cfg.Session.Secure, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the code flow. Every identity failure ends on the
// generic error page without a reason.
func (h *AuthHandler) Callback(c *gin.Context) {
	fail := func(format string, args ...interface{}) {
		logger.Warnf("sign-in rejected: "+format, args...)
		c.Redirect(http.StatusFound, authErrorPath)
	}
	want, _ := c.Cookie(stateCookie)
	callback, _ := c.Cookie(callbackCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, "", -1, authCookiePath, "", h.cfg.Session.Secure, true)
	c.SetCookie(callbackCookie, "", -1, authCookiePath, "", h.cfg.Session.Secure, true)

	if e := c.Query("error"); e != "" {
		fail("provider error %q", e)
		return
	}
	got := c.Query("state")
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		fail("state mismatch")
		return
	}
	code := c.Query("code")
	if code == "" || h.provider == nil {
		fail("missing code")
		return
	}
	ctx := c.Request.Context()
	prof, err := h.provider.Exchange(ctx, code)
	if err != nil {
		fail("code exchange: %v", err)
		return
	}
	if !h.resolver.ValidateProfile(prof) {
		fail("profile validation failed for email=%s hd=%q verified=%v", prof.Email, prof.HostedDomain, prof.EmailVerified)
		return
	}
	role := h.resolver.Resolve(prof.Email)
	if role == access.RoleNone {
		fail("no role for email=%s", prof.Email)
		return
	}

	if _, err := h.usersSvc.UpsertFromProfile(ctx, prof, role); err != nil {
		logger.Errorf("user upsert error: %v", err)
	}
	sess, err := h.sessionsSvc.CreateSession(ctx, prof.Email, prof.Name, h.cfg.Session.TTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.Redirect(http.StatusFound, authErrorPath)
		return
	}
	tok, err := tokens.GenerateSessionToken(h.cfg.Session.Secret, tokens.Claims{
		Email:     sess.Email,
		Name:      prof.Name,
		Role:      role,
		SessionID: sess.ID,
	}, h.cfg.Session.TTL)
	if err != nil {
		logger.Errorf("failed to sign session token: %v", err)
		_ = h.sessionsSvc.DeleteSession(ctx, sess.ID)
		c.Redirect(http.StatusFound, authErrorPath)
		return
	}
	c.SetCookie(h.cfg.Session.CookieName, tok, int(h.cfg.Session.TTL.Seconds()), "/", "", h.cfg.Session.Secure, true)
	logger.Infof("signed in: email=%s role=%s", sess.Email, role)
	c.Redirect(http.StatusFound, safeCallback(callback))
}

// SignOut revokes the server-side session and clears the cookie.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if raw, err := c.Cookie(h.cfg.Session.CookieName); err == nil && raw != "" {
		if claims, err := tokens.ParseSessionToken(h.cfg.Session.Secret, raw); err == nil {
			if err := h.sessionsSvc.DeleteSession(c.Request.Context(), claims.SessionID); err != nil {
				logger.Errorf("failed to remove session: %v", err)
			}
			logger.Infof("signed out: email=%s", claims.Email)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", h.cfg.Session.Secure, true)
	if c.Request.Method == http.MethodPost {
		c.JSON(http.StatusOK, gin.H{"message": "signed out"})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// safeCallback keeps post-login redirects on this site.
func safeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	if strings.ContainsAny(raw, "\r\n") {
		return "/"
	}
	return raw
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
