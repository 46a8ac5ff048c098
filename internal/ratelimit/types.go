// Package ratelimit gates generation actions behind a rolling-window count.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrLimitReached marks a denial caused by the free-tier ceiling, so callers
// can answer with an upsell instead of a generic failure.
var ErrLimitReached = errors.New("ratelimit: generation limit reached")

// Result describes the outcome of a limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts generation events inside a trailing window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// KeyForUser builds a limiter key for a user.
func KeyForUser(userID uint64) string {
	if userID == 0 {
		return ""
	}
	return "u:" + strconv.FormatUint(userID, 10)
}

// UserFromKey parses the user ID back out of a limiter key.
func UserFromKey(key string) (uint64, error) {
	raw, ok := strings.CutPrefix(key, "u:")
	if !ok {
		return 0, fmt.Errorf("ratelimit: not a user key: %q", key)
	}
	userID, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil {
		return 0, fmt.Errorf("ratelimit: parse user key %q: %w", key, errParse)
	}
	return userID, nil
}
