package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/models"
)

var ErrMissingEmail = errors.New("profile has no email")

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	now  func() time.Time
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, now: time.Now}
}

// UpsertFromProfile records the user after a successful sign-in.
func (s *Service) UpsertFromProfile(ctx context.Context, p access.Profile, role access.Role) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, ErrMissingEmail
	}
	u := &models.User{
		Sub:         p.Subject,
		Email:       email,
		Name:        p.Name,
		Role:        string(role),
		LastLoginAt: s.now().UTC(),
	}
	return s.repo.UpsertByEmail(ctx, u)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
