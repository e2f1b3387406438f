package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/insideadapt/kb-portal/internal/access"
	"golang.org/x/oauth2"
)

var (
	ErrMissingIDToken = errors.New("token response has no id_token")
	ErrInvalidProfile = errors.New("identity profile is incomplete")
)

// IDToken is a minimal interface for token payloads that allows extracting claims
// It is satisfied by *oidc.IDToken and by test fakes.
type IDToken interface {
	Claims(v interface{}) error
}

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify checks signature, issuer, audience and expiry of a raw ID token.
func (v *Verifier) Verify(ctx context.Context, raw string) (IDToken, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

// VerifyProfile verifies raw and extracts the identity profile.
func (v *Verifier) VerifyProfile(ctx context.Context, raw string) (access.Profile, error) {
	tok, err := v.Verify(ctx, raw)
	if err != nil {
		return access.Profile{}, err
	}
	return ProfileFromToken(tok)
}

// Config configures the Google sign-in flow.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HostedDomain string
}

// GoogleProvider runs the authorization-code flow against Google and turns
// the returned ID token into an access.Profile.
type GoogleProvider struct {
	oauth        *oauth2.Config
	verifier     *Verifier
	hostedDomain string
}

// NewGoogleProvider discovers the issuer and prepares the oauth2 client.
func NewGoogleProvider(ctx context.Context, cfg Config) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	v := &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}
	return newGoogleProvider(oc, v, cfg.HostedDomain), nil
}

func newGoogleProvider(oc *oauth2.Config, v *Verifier, hd string) *GoogleProvider {
	return &GoogleProvider{oauth: oc, verifier: v, hostedDomain: strings.ToLower(strings.TrimPrefix(hd, "@"))}
}

// Verifier returns the ID token verifier used for bearer credentials.
func (p *GoogleProvider) Verifier() *Verifier { return p.verifier }

// AuthCodeURL builds the consent URL. The hd hint restricts the account
// chooser to the organization; it is re-checked on the returned token.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
	if p.hostedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", p.hostedDomain))
	}
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades the authorization code for tokens and returns the verified profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (access.Profile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return access.Profile{}, fmt.Errorf("code exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return access.Profile{}, ErrMissingIDToken
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return access.Profile{}, fmt.Errorf("verify id token: %w", err)
	}
	return ProfileFromToken(idToken)
}
