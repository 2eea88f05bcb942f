package domain

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of one fixed-window rate limit check.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter answers whether one more request under key fits in the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
