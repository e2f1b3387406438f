package oidc

import (
	"strings"

	"github.com/insideadapt/kb-portal/internal/access"
)

type profileClaims struct {
	Subject       string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	HostedDomain  string   `json:"hd"`
	Name          string   `json:"name"`
}

// flexBool accepts true and "true"; some issuers send the string form.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*b = flexBool(strings.EqualFold(s, "true"))
	return nil
}

// ProfileFromToken extracts the identity profile from verified token claims.
func ProfileFromToken(tok IDToken) (access.Profile, error) {
	var c profileClaims
	if err := tok.Claims(&c); err != nil {
		return access.Profile{}, err
	}
	if c.Email == "" {
		return access.Profile{}, ErrInvalidProfile
	}
	return access.Profile{
		Subject:       c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		EmailVerified: bool(c.EmailVerified),
		HostedDomain:  c.HostedDomain,
	}, nil
}
