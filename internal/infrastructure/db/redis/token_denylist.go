package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minRevocationTTL keeps a revoked token listed even when it is about to expire.
const minRevocationTTL = time.Minute

// TokenDenylist records revoked session tokens in Redis until they expire.
// Key format: revoked:<token_id>
type TokenDenylist struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewTokenDenylist creates a TokenDenylist wrapping the given Redis client.
func NewTokenDenylist(client redis.Cmdable) *TokenDenylist {
	return &TokenDenylist{client: client, now: time.Now}
}

// Revoke lists tokenID until expiresAt.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (d *TokenDenylist) key(tokenID string) string {
	return "revoked:" + tokenID
}
