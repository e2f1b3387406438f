// Package access maps identities to roles and decides content visibility.
package access

import "strings"

// Role is the access tier derived from an email address.
type Role string

const (
	RoleNone    Role = "none"
	RoleMember  Role = "member"
	RoleBilling Role = "billing"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleNone || r == RoleMember || r == RoleBilling
}

// Resolver derives roles from the organization domain and the billing allowlist.
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	domain    string
	suffix    string
	allowlist map[string]struct{}
}

// NewResolver builds a resolver for the given organization domain (e.g. "adaptwny.com").
// Allowlist entries are compared case-insensitively.
func NewResolver(domain string, allowlist []string) *Resolver {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "@")
	r := &Resolver{domain: d, allowlist: make(map[string]struct{}, len(allowlist))}
	if d != "" {
		r.suffix = "@" + d
	}
	for _, e := range allowlist {
		if n := normalize(e); n != "" {
			r.allowlist[n] = struct{}{}
		}
	}
	return r
}

// Domain returns the organization domain without the leading "@".
func (r *Resolver) Domain() string { return r.domain }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve maps an email to a role. It never panics; any failure yields RoleNone.
func (r *Resolver) Resolve(email string) (role Role) {
	defer func() {
		if rec := recover(); rec != nil {
			role = RoleNone
		}
	}()
	if r == nil || r.suffix == "" {
		return RoleNone
	}
	e := normalize(email)
	if !strings.HasSuffix(e, r.suffix) {
		return RoleNone
	}
	if _, ok := r.allowlist[e]; ok {
		return RoleBilling
	}
	return RoleMember
}

// CanAccessBilling reports whether email resolves to the billing role.
func (r *Resolver) CanAccessBilling(email string) bool {
	return r.Resolve(email) == RoleBilling
}

// CanAccessApplication reports whether email resolves to any role other than none.
func (r *Resolver) CanAccessApplication(email string) bool {
	return r.Resolve(email) != RoleNone
}

// Profile is the identity-provider view of a user at sign-in.
type Profile struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
	HostedDomain  string
}

// ValidateProfile is the one-time sign-in gate. The hosted domain, when present,
// must equal the organization domain exactly.
func (r *Resolver) ValidateProfile(p Profile) bool {
	if r == nil || r.suffix == "" {
		return false
	}
	if !p.EmailVerified {
		return false
	}
	if p.Email == "" {
		return false
	}
	if p.HostedDomain != "" && p.HostedDomain != r.domain {
		return false
	}
	return strings.HasSuffix(strings.ToLower(p.Email), r.suffix)
}
