package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records revoked session IDs in Redis so every instance rejects
// a signed-out cookie even when sessions are held in process memory.
// A nil *Revocations, or one without a client, is a no-op.
type Revocations struct {
	client *redis.Client
	prefix string
}

func NewRevocations(c *redis.Client) *Revocations {
	return &Revocations{client: c, prefix: "kb:revoked:"}
}

// Revoke marks the session as revoked for ttl.
func (r *Revocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if r == nil || r.client == nil || sessionID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, r.prefix+sessionID, "1", ttl).Err()
}

// IsRevoked returns true when the session ID is on the revocation list.
func (r *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	exists, err := r.client.Exists(ctx, r.prefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
