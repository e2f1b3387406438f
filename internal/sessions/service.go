package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a session is unknown, expired or revoked.
var ErrNotFound = errors.New("session not found")

// Service wraps repository operations with business logic
type Service struct {
	repo    Repository
	revoked *Revocations
	now     func() time.Time
}

func NewService(r Repository, revoked *Revocations) *Service {
	return &Service{repo: r, revoked: revoked, now: time.Now}
}

// CreateSession stores a new session for email and returns it.
func (s *Service) CreateSession(ctx context.Context, email, name string, ttl time.Duration) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        hex.EncodeToString(b),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// ValidateSession returns the session if it exists, is not expired and was
// not revoked.
func (s *Service) ValidateSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	revoked, err := s.revoked.IsRevoked(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrNotFound
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if sess.Expired(s.now().UTC()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteSession removes the session and adds it to the revocation list.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	ttl := 24 * time.Hour
	if sess, err := s.repo.Get(ctx, id); err == nil && sess != nil {
		ttl = sess.ExpiresAt.Sub(s.now().UTC())
	}
	if err := s.revoked.Revoke(ctx, id, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
