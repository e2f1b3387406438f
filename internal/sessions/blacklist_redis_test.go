package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevocations_RevokeAndExpire(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	r := NewRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "sid-1", 2*time.Second))

	ok, err := r.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.True(t, ok)

	// advance past TTL
	m.FastForward(3 * time.Second)

	ok2, err := r.IsRevoked(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestRevocations_NoClient_Noop(t *testing.T) {
	var r *Revocations
	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "sid", time.Second))
	ok, err := r.IsRevoked(ctx, "sid")
	require.NoError(t, err)
	require.False(t, ok)

	r2 := NewRevocations(nil)
	require.NoError(t, r2.Revoke(ctx, "sid", time.Second))
	ok, err = r2.IsRevoked(ctx, "sid")
	require.NoError(t, err)
	require.False(t, ok)
}
