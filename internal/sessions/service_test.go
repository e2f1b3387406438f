package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "  NKO@adaptwny.com ", "N Ko", time.Hour)
	require.NoError(t, err)
	require.Len(t, sess.ID, 64)
	require.Equal(t, "nko@adaptwny.com", sess.Email)

	got, err := svc.ValidateSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.Email, got.Email)

	require.NoError(t, svc.DeleteSession(ctx, sess.ID))
	_, err = svc.ValidateSession(ctx, sess.ID)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Equal(t, 0, repo.Len())
}

func TestValidateSession_UnknownAndEmpty(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	_, err := svc.ValidateSession(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ValidateSession(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateSession_ExpiredIsRemoved(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "a@adaptwny.com", "", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.ValidateSession(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, repo.Len())
}

func TestDeleteSession_RevokesAcrossRepositories(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	revoked := NewRevocations(client)
	ctx := context.Background()

	// two instances with separate in-memory repositories sharing one revocation list
	a := NewMemoryRepository()
	b := NewMemoryRepository()
	svcA := NewService(a, revoked)
	svcB := NewService(b, revoked)

	sess, err := svcA.CreateSession(ctx, "a@adaptwny.com", "", time.Hour)
	require.NoError(t, err)
	require.NoError(t, b.Create(ctx, sess))

	require.NoError(t, svcA.DeleteSession(ctx, sess.ID))
	_, err = svcB.ValidateSession(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

type failingRepo struct{ MemoryRepository }

func (f *failingRepo) Get(ctx context.Context, id string) (*Session, error) {
	return nil, errors.New("backend down")
}

func TestValidateSession_RepositoryError(t *testing.T) {
	svc := NewService(&failingRepo{}, nil)
	_, err := svc.ValidateSession(context.Background(), "x")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
