package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Idempotency) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewIdempotency(client, time.Hour)
}

func TestIdempotency_FirstClaimWins(t *testing.T) {
	ctx := context.Background()
	_, s := setup(t)

	first, second := uuid.New(), uuid.New()
	owner, claimed, err := s.ClaimIdempotencyKey(ctx, "abc", first)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, first, owner)

	owner, claimed, err = s.ClaimIdempotencyKey(ctx, "abc", second)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, first, owner)
}

func TestIdempotency_Expires(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)

	_, _, err := s.ClaimIdempotencyKey(ctx, "abc", uuid.New())
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	next := uuid.New()
	owner, claimed, err := s.ClaimIdempotencyKey(ctx, "abc", next)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, next, owner)
}

func TestIdempotency_ReleaseOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)
	first, second := uuid.New(), uuid.New()

	_, _, err := s.ClaimIdempotencyKey(ctx, "abc", first)
	require.NoError(t, err)
	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "abc", second))
	assert.True(t, mr.Exists(keyPrefix+"abc"))

	require.NoError(t, s.ReleaseIdempotencyKey(ctx, "abc", first))
	assert.False(t, mr.Exists(keyPrefix+"abc"))
}

func TestIdempotency_CorruptValue(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)
	require.NoError(t, mr.Set(keyPrefix+"bad", "not-a-uuid"))

	_, _, err := s.ClaimIdempotencyKey(ctx, "bad", uuid.New())
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, NewIdempotency(client, time.Minute).Ready(context.Background()))

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), addr)
	assert.Error(t, err)
}
