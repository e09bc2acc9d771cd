package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptStub answers EvalSha with a canned reply.
type scriptStub struct {
	redis.Scripter
	reply []any
	err   error
	keys  []string
	args  []any
}

func (s *scriptStub) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	s.keys = keys
	s.args = args
	return redis.NewCmdResult(s.reply, s.err)
}

func TestTakeAllowed(t *testing.T) {
	now := time.Date(2026, 7, 6, 8, 0, 0, 0, time.UTC)
	stub := &scriptStub{reply: []any{int64(1), int64(2500), int64(0), now.UnixMilli()}}

	res, err := NewTokenBucket(stub).Take(context.Background(), "k", Limit{PerSecond: 0.5, Burst: 3})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 2, res.Remaining)
	assert.Zero(t, res.RetryAfter)
	assert.True(t, res.ResetAt.Equal(now))

	assert.Equal(t, []string{"k"}, stub.keys)
	assert.Equal(t, []any{500.0, 3000, int64(12000)}, stub.args)
}

func TestTakeDenied(t *testing.T) {
	now := time.Date(2026, 7, 6, 8, 0, 0, 0, time.UTC)
	stub := &scriptStub{reply: []any{int64(0), int64(400), int64(36000), now.UnixMilli()}}

	res, err := NewTokenBucket(stub).Take(context.Background(), "k", Limit{PerSecond: 1.0 / 60, Burst: 1})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 36*time.Second, res.RetryAfter)
	assert.True(t, res.ResetAt.Equal(now.Add(36*time.Second)))
}

func TestTakeRejectsBadInput(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Take(context.Background(), "k", Limit{PerSecond: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrNotConfigured)

	bucket := NewTokenBucket(&scriptStub{})
	_, err = bucket.Take(context.Background(), "", Limit{PerSecond: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = bucket.Take(context.Background(), "k", Limit{PerSecond: 1})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = parseResult([]int64{1, 2}, Limit{PerSecond: 1, Burst: 1})
	assert.Error(t, err)
}

func TestIdleTTL(t *testing.T) {
	assert.Equal(t, time.Second, Limit{}.idleTTL())
	assert.Equal(t, 12*time.Second, Limit{PerSecond: 0.5, Burst: 3}.idleTTL())
	assert.Equal(t, time.Second, Limit{PerSecond: 100, Burst: 1}.idleTTL())
}

func TestDeliveryLimiterWithoutRedisAllows(t *testing.T) {
	limiter := NewDeliveryLimiter(nil, config.Config{}, zap.NewNop())
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowEmail(context.Background(), "invoice", "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDeliveryLimiterKeysPerDocument(t *testing.T) {
	stub := &scriptStub{reply: []any{int64(0), int64(0), int64(60000), int64(0)}}
	limiter := &DeliveryLimiter{
		bucket: NewTokenBucket(stub),
		log:    zap.NewNop(),
		limit:  Limit{PerSecond: 1.0 / 60, Burst: 1},
	}

	res, err := limiter.AllowEmail(context.Background(), "invoice", "42")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)
	assert.Equal(t, []string{"fieldbook:delivery:email:invoice:42"}, stub.keys)
}

func TestDeliveryLimiterFailsOpen(t *testing.T) {
	limiter := &DeliveryLimiter{
		bucket: NewTokenBucket(&scriptStub{err: errors.New("connection refused")}),
		log:    zap.NewNop(),
		limit:  Limit{PerSecond: 1, Burst: 1},
	}

	res, err := limiter.AllowEmail(context.Background(), "estimate", "7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
