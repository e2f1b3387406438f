package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insideadapt/kb-portal/internal/access"
	"github.com/insideadapt/kb-portal/internal/models"
)

type fakeRepo struct {
	lastUpsert *models.User
	upsertErr  error
}

func (f *fakeRepo) UpsertByEmail(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastUpsert = u
	ret := *u
	ret.ID = "abcd1234"
	return &ret, f.upsertErr
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func TestUpsertFromProfile(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	u, err := svc.UpsertFromProfile(context.Background(), access.Profile{
		Subject: "sub-123",
		Email:   "  NKO@AdaptWNY.com ",
		Name:    "N Ko",
	}, access.RoleBilling)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID == "" {
		t.Fatalf("expected user with ID, got %v", u)
	}
	if u.Email != "nko@adaptwny.com" {
		t.Fatalf("unexpected email: %s", u.Email)
	}
	if u.Role != "billing" {
		t.Fatalf("unexpected role: %s", u.Role)
	}
	if !repo.lastUpsert.LastLoginAt.Equal(fixed) {
		t.Fatalf("unexpected lastLoginAt: %v", repo.lastUpsert.LastLoginAt)
	}
}

func TestUpsertFromProfile_MissingEmail(t *testing.T) {
	svc := NewService(&fakeRepo{})
	_, err := svc.UpsertFromProfile(context.Background(), access.Profile{Subject: "x"}, access.RoleMember)
	if !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestMemoryUserRepository_PreservesCreatedAt(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	ctx := context.Background()
	first, err := svc.UpsertFromProfile(ctx, access.Profile{Email: "a@adaptwny.com", Name: "A"}, access.RoleMember)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.UpsertFromProfile(ctx, access.Profile{Email: "a@adaptwny.com", Name: "A2"}, access.RoleBilling)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(second.CreatedAt) {
		t.Fatalf("updatedAt before createdAt")
	}
	got, err := svc.GetByEmail(ctx, "A@adaptwny.com")
	if err != nil || got == nil || got.Name != "A2" || got.Role != "billing" {
		t.Fatalf("unexpected stored user: %v err=%v", got, err)
	}
	missing, _ := svc.GetByEmail(ctx, "nobody@adaptwny.com")
	if missing != nil {
		t.Fatalf("expected nil for unknown user")
	}
}
