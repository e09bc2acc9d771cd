// Package ratelimit throttles outgoing document email through a redis token bucket.
package ratelimit

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fieldbook/internal/config"
	"go.uber.org/zap"
)

const keyDeliveryEmail = "fieldbook:delivery:email:%s:%s"

// DeliveryLimiter caps how often one document can be emailed. A nil limiter allows everything.
type DeliveryLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	limit  Limit
}

func NewDeliveryLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *DeliveryLimiter {
	if client == nil {
		return nil
	}
	perMinute := cfg.Delivery.EmailRatePerMinute
	burst := cfg.Delivery.EmailBurst
	if perMinute <= 0 || burst <= 0 {
		log.Warn("delivery rate limit disabled", zap.Float64("rate_per_minute", perMinute), zap.Int("burst", burst))
		return nil
	}
	return &DeliveryLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.delivery"),
		limit:  Limit{PerSecond: perMinute / 60, Burst: burst},
	}
}

func (l *DeliveryLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowEmail consumes one token for the document. Redis errors fail open.
func (l *DeliveryLimiter) AllowEmail(ctx context.Context, documentType, id string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	result, err := l.bucket.Take(ctx, fmt.Sprintf(keyDeliveryEmail, documentType, id), l.limit)
	if err != nil {
		l.log.Warn("delivery rate limit check failed", zap.String("document_type", documentType), zap.String("id", id), zap.Error(err))
		return Result{Allowed: true}, nil
	}
	return result, nil
}
