package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/insideadapt/kb-portal/internal/access"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims carried by the session cookie. Role is informational; callers
// re-resolve it from Email on every request.
type Claims struct {
	Email     string
	Name      string
	Role      access.Role
	SessionID string
	ExpiresAt time.Time
}

// GenerateSessionToken creates a signed HS256 session token.
func GenerateSessionToken(secret string, c Claims, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("session secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   c.Email,
		"email": c.Email,
		"name":  c.Name,
		"role":  string(c.Role),
		"sid":   c.SessionID,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseSessionToken verifies signature and expiry and returns the claims.
func ParseSessionToken(secret, raw string) (*Claims, error) {
	if secret == "" || raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	email, _ := mc["email"].(string)
	sid, _ := mc["sid"].(string)
	if email == "" || sid == "" {
		return nil, ErrInvalidToken
	}
	name, _ := mc["name"].(string)
	role, _ := mc["role"].(string)
	out := &Claims{Email: email, Name: name, Role: access.Role(role), SessionID: sid}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
