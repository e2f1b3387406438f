package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://accounts.example.test"
	testClientID = "kb-portal-client"
)

type tokenServer struct {
	key     *rsa.PrivateKey
	claims  jwt.MapClaims
	noIDTok bool
}

func (ts *tokenServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "good-code", r.Form.Get("code"))
		resp := map[string]interface{}{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if !ts.noIDTok {
			raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, ts.claims).SignedString(ts.key)
			require.NoError(t, err)
			resp["id_token"] = raw
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestProvider(t *testing.T, ts *tokenServer) *GoogleProvider {
	srv := httptest.NewServer(ts.handler(t))
	t.Cleanup(srv.Close)

	keySet := &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&ts.key.PublicKey}}
	v := &Verifier{verifier: gooidc.NewVerifier(testIssuer, keySet, &gooidc.Config{ClientID: testClientID})}
	oc := &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/api/auth/callback/google",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.test/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{gooidc.ScopeOpenID, "email", "profile"},
	}
	return newGoogleProvider(oc, v, "@AdaptWNY.com")
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testClientID,
		"sub":            "1234567890",
		"email":          "staff@adaptwny.com",
		"email_verified": true,
		"hd":             "adaptwny.com",
		"name":           "Staff Member",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func newKey(t *testing.T) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestAuthCodeURL_Params(t *testing.T) {
	p := newTestProvider(t, &tokenServer{key: newKey(t)})
	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "state-xyz", q.Get("state"))
	require.Equal(t, "adaptwny.com", q.Get("hd"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, testClientID, q.Get("client_id"))
}

func TestExchange_ReturnsProfile(t *testing.T) {
	ts := &tokenServer{key: newKey(t), claims: baseClaims()}
	p := newTestProvider(t, ts)

	prof, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, "staff@adaptwny.com", prof.Email)
	require.True(t, prof.EmailVerified)
	require.Equal(t, "adaptwny.com", prof.HostedDomain)
	require.Equal(t, "Staff Member", prof.Name)
	require.Equal(t, "1234567890", prof.Subject)
}

func TestExchange_WrongAudienceRejected(t *testing.T) {
	c := baseClaims()
	c["aud"] = "someone-else"
	p := newTestProvider(t, &tokenServer{key: newKey(t), claims: c})
	_, err := p.Exchange(context.Background(), "good-code")
	require.Error(t, err)
}

func TestExchange_ForeignKeyRejected(t *testing.T) {
	ts := &tokenServer{key: newKey(t), claims: baseClaims()}
	p := newTestProvider(t, ts)
	// sign with a key the verifier does not know
	ts.key = newKey(t)
	_, err := p.Exchange(context.Background(), "good-code")
	require.Error(t, err)
}

func TestExchange_MissingIDToken(t *testing.T) {
	p := newTestProvider(t, &tokenServer{key: newKey(t), noIDTok: true})
	_, err := p.Exchange(context.Background(), "good-code")
	require.ErrorIs(t, err, ErrMissingIDToken)
}

func TestProfileFromToken_StringVerifiedAndMissingEmail(t *testing.T) {
	tok := &insecureToken{claims: map[string]interface{}{"email": "a@adaptwny.com", "email_verified": "true"}}
	prof, err := ProfileFromToken(tok)
	require.NoError(t, err)
	require.True(t, prof.EmailVerified)

	_, err = ProfileFromToken(&insecureToken{claims: map[string]interface{}{"sub": "x"}})
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestInsecureVerifier_ParsesPayload(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"email":"a@adaptwny.com","email_verified":true}`))
	tok, err := NewInsecureVerifier().Verify(context.Background(), "e30."+payload+".sig")
	require.NoError(t, err)
	prof, err := ProfileFromToken(tok)
	require.NoError(t, err)
	require.Equal(t, "a@adaptwny.com", prof.Email)

	_, err = NewInsecureVerifier().Verify(context.Background(), "garbage")
	require.Error(t, err)
}
