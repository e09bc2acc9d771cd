package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// milli is the fixed-point scale of a bucket level. Redis converts Lua
// numbers to integers, so levels are stored in thousandths of a token.
const milli = 1000

const bucketScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local level = tonumber(redis.call("HGET", KEYS[1], "level"))
local at = tonumber(redis.call("HGET", KEYS[1], "at"))
if level == nil or at == nil then
  level = capacity
else
  local elapsed = math.max(0, now - at)
  level = math.min(capacity, level + math.floor(elapsed * rate / 1000))
end

local allowed = 0
local wait = 0
if level >= 1000 then
  allowed = 1
  level = level - 1000
else
  wait = math.ceil((1000 - level) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "level", level, "at", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, level, wait, now}
`

var (
	ErrNotConfigured = errors.New("ratelimit: bucket not configured")
	ErrInvalidLimit  = errors.New("ratelimit: rate and burst must be positive")
	ErrEmptyKey      = errors.New("ratelimit: empty key")
)

// Limit refills PerSecond tokens per second up to Burst.
type Limit struct {
	PerSecond float64
	Burst     int
}

func (l Limit) validate() error {
	if l.PerSecond <= 0 || l.Burst <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// idleTTL keeps a bucket for twice the time it takes to refill from empty.
func (l Limit) idleTTL() time.Duration {
	if l.validate() != nil {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(2*float64(l.Burst)/l.PerSecond))
	return time.Duration(seconds) * time.Second
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// TokenBucket is a token bucket kept in a redis hash and updated atomically by a script.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client, script: redis.NewScript(bucketScript)}
}

// Take removes one token from the bucket at key.
func (b *TokenBucket) Take(ctx context.Context, key string, limit Limit) (Result, error) {
	if b == nil || b.client == nil {
		return Result{}, ErrNotConfigured
	}
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	if err := limit.validate(); err != nil {
		return Result{}, err
	}

	vals, err := b.script.Run(ctx, b.client, []string{key},
		limit.PerSecond*milli,
		limit.Burst*milli,
		limit.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	return parseResult(vals, limit)
}

func parseResult(vals []int64, limit Limit) (Result, error) {
	if len(vals) != 4 {
		return Result{}, errors.New("ratelimit: unexpected script reply")
	}
	wait := time.Duration(vals[2]) * time.Millisecond
	return Result{
		Allowed:    vals[0] == 1,
		Limit:      limit.Burst,
		Remaining:  int(vals[1] / milli),
		RetryAfter: wait,
		ResetAt:    time.UnixMilli(vals[3]).Add(wait),
	}, nil
}
