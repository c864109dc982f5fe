package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist invalidates outstanding short-lived access credentials the moment
// their session is revoked. Entries only need to outlive the access-token
// TTL, after which the credential is dead on its own.
type Denylist struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDenylist constructs a Denylist.
func NewDenylist(client *redis.Client, ttl time.Duration) *Denylist {
	return &Denylist{client: client, ttl: ttl}
}

func (d *Denylist) key(sessionID string) string {
	return "session:denied:" + sessionID
}

// Ban marks a session id as revoked.
func (d *Denylist) Ban(ctx context.Context, sessionID string) error {
	return d.client.Set(ctx, d.key(sessionID), "1", d.ttl).Err()
}

// Banned reports whether a session id has been revoked.
func (d *Denylist) Banned(ctx context.Context, sessionID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
