package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateSweepsExpired(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	require.NoError(t, repo.Create(ctx, &Session{ID: "abandoned", Email: "a@adaptwny.com", ExpiresAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &Session{ID: "active", Email: "b@adaptwny.com", ExpiresAt: base.Add(48 * time.Hour)}))
	require.Equal(t, 2, repo.Len())

	// within the sweep interval nothing is scanned
	repo.now = func() time.Time { return base.Add(30 * time.Second) }
	require.NoError(t, repo.Create(ctx, &Session{ID: "c", ExpiresAt: base.Add(48 * time.Hour)}))
	require.Equal(t, 3, repo.Len())

	// the abandoned session is never looked up again but goes on the next sweep
	repo.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, repo.Create(ctx, &Session{ID: "d", ExpiresAt: base.Add(48 * time.Hour)}))
	require.Equal(t, 3, repo.Len())
	got, err := repo.Get(ctx, "abandoned")
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = repo.Get(ctx, "active")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestMemoryRepository_PruneExpired(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &Session{ID: "new", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &Session{ID: "forever"}))

	require.Equal(t, 1, repo.PruneExpired(now))
	require.Equal(t, 2, repo.Len())
	require.Equal(t, 0, repo.PruneExpired(now))
}
