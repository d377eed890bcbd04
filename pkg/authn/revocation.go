package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks access tokens that were logged out before they expired.
type Revoker interface {
	// Revoke marks the token ID as revoked until its expiry.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	// IsRevoked reports whether the token ID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NopRevoker never revokes anything. Logout then only discards the token
// client side, and the token stays valid until it expires.
type NopRevoker struct{}

func (NopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// RedisRevoker keeps revoked token IDs in Redis with a TTL matching the
// token's remaining lifetime, so the set never outgrows the live tokens.
type RedisRevoker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevoker wraps an existing client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

// NewRedisRevokerFromURL connects using a redis:// URL.
func NewRedisRevokerFromURL(url string) (*RedisRevoker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisRevoker(redis.NewClient(opts)), nil
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke stores the token ID until expiresAt. Already expired tokens are
// ignored.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

// IsRevoked checks whether the token ID is in the revoked set.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks connectivity to Redis.
func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisRevoker) Close() error {
	return r.client.Close()
}
