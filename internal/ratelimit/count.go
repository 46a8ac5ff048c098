package ratelimit

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// CountFunc reports how many generation events a key produced in the window.
type CountFunc func(ctx context.Context, key string, window time.Duration) (int64, error)

// CountLimiter checks limits against an external event count, typically the
// history store.
//
// A failing count is treated as zero recent events: the limiter fails open
// toward availability rather than denying generations during an outage.
type CountLimiter struct {
	count CountFunc
}

// NewCountLimiter constructs a CountLimiter.
func NewCountLimiter(count CountFunc) *CountLimiter {
	return &CountLimiter{count: count}
}

// Allow checks the rolling-window count against the limit.
func (l *CountLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}

	var count int64
	if l != nil && l.count != nil {
		recent, errCount := l.count(ctx, key, window)
		if errCount != nil {
			log.WithError(errCount).Warn("ratelimit: count failed, treating as zero recent events")
		} else {
			count = recent
		}
	}

	reset := now.Add(window).UTC()
	if count >= int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(count)
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}
