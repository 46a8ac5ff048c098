package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var redisCountScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, ARGV[1])
return redis.call("ZCARD", KEYS[1])
`)

// RedisLimiter counts generation events in a Redis sorted set per key,
// scored by event time, giving a rolling window shared across instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow checks the rolling-window event count against the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}

	cutoff := now.Add(-window).UnixMilli()
	redisKey := l.buildKey(key)
	res, errEval := redisCountScript.Run(ctx, l.client, []string{redisKey}, cutoff).Int64()
	if errEval != nil {
		return Result{}, errEval
	}

	reset := now.Add(window).UTC()
	if res >= int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(res)
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

// Record adds a generation event for the key at the given time.
func (l *RedisLimiter) Record(ctx context.Context, key string, window time.Duration, now time.Time) error {
	if key == "" || l == nil || l.client == nil {
		return nil
	}
	redisKey := l.buildKey(key)
	member := uuid.NewString()
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.Expire(ctx, redisKey, window+time.Minute)
	_, errExec := pipe.Exec(ctx)
	return errExec
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
