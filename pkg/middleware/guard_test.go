package middleware

import (
	"testing"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		path string
		auth bool
		role access.Role
		want Decision
	}{
		{"/", false, access.RoleNone, Allow},
		{"/landing", false, access.RoleNone, Allow},
		{"/landing/pricing", false, access.RoleNone, Allow},
		{"/auth/signin", false, access.RoleNone, Allow},
		{"/api/auth/callback/google", false, access.RoleNone, Allow},
		{"/403", false, access.RoleNone, Allow},
		{"/health", false, access.RoleNone, Allow},
		{"/ready", false, access.RoleNone, Allow},
		{"/metrics", false, access.RoleNone, RedirectSignIn},
		{"/swagger/index.html", false, access.RoleNone, RedirectSignIn},
		{"/swagger/doc.json", false, access.RoleNone, RedirectSignIn},
		{"/static/app.css", false, access.RoleNone, RedirectSignIn},
		{"/metrics", true, access.RoleMember, Allow},

		{"/docs/compliance/hipaa", false, access.RoleNone, RedirectSignIn},
		{"/api/docs/compliance/hipaa", false, access.RoleNone, Unauthorized},
		{"/api/search", true, access.RoleNone, Unauthorized},
		{"/search", true, access.Role("admin"), RedirectSignIn},

		{"/docs/compliance/hipaa", true, access.RoleMember, Allow},
		{"/api/search", true, access.RoleMember, Allow},
		{"/billing", true, access.RoleMember, RedirectDenied},
		{"/billing/codes", true, access.RoleMember, RedirectDenied},
		{"/docs/billing/codes", true, access.RoleMember, RedirectDenied},
		{"/api/billing", true, access.RoleMember, Forbidden},
		{"/api/billing/claims", true, access.RoleMember, Forbidden},

		{"/billing/codes", true, access.RoleBilling, Allow},
		{"/api/billing", true, access.RoleBilling, Allow},

		// prefixes are case-sensitive
		{"/Billing/codes", true, access.RoleMember, Allow},
		// public exact paths do not extend to children
		{"/403/x", false, access.RoleNone, RedirectSignIn},
		{"/landingx", false, access.RoleNone, RedirectSignIn},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Decide(tc.path, tc.auth, tc.role), "%s auth=%v role=%s", tc.path, tc.auth, tc.role)
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "forbidden", Forbidden.String())
	assert.Equal(t, "unknown", Decision(42).String())
}

func TestSignInURL(t *testing.T) {
	assert.Equal(t, "/auth/signin?callbackUrl=%2Fdocs%2Fa%2Fb", SignInURL("/docs/a/b"))
}
