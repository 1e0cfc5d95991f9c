// Package redisstore keeps entry-submission idempotency keys in Redis so that
// every API replica sees the same bindings.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledger:idem:"

// Connect creates a Redis client and verifies it answers PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return client, nil
}

// Idempotency binds Idempotency-Key header values to created entry ids.
type Idempotency struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotency wraps client. Keys expire after ttl.
func NewIdempotency(client *redis.Client, ttl time.Duration) *Idempotency {
	return &Idempotency{client: client, ttl: ttl}
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClaimIdempotencyKey binds key to entryID unless a live binding exists and
// returns the bound entry. claimed is true when that is entryID.
func (s *Idempotency) ClaimIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) (uuid.UUID, bool, error) {
	// The loser of SETNX reads the winner back; retry if it expired in between.
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := s.client.SetNX(ctx, keyPrefix+key, entryID.String(), s.ttl).Result()
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("redisstore: setnx: %w", err)
		}
		if ok {
			return entryID, true, nil
		}
		raw, err := s.client.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("redisstore: get: %w", err)
		}
		owner, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("redisstore: corrupt value for %q: %w", key, err)
		}
		return owner, owner == entryID, nil
	}
	return uuid.Nil, false, fmt.Errorf("redisstore: claim %q: binding keeps expiring", key)
}

// ReleaseIdempotencyKey drops key if it is still bound to entryID.
func (s *Idempotency) ReleaseIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) error {
	if err := releaseScript.Run(ctx, s.client, []string{keyPrefix + key}, entryID.String()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: release: %w", err)
	}
	return nil
}

// Ready pings Redis.
func (s *Idempotency) Ready(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
