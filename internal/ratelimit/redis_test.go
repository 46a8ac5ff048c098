package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stylisthq/stylist-server/internal/models"
)

func redisSettings(addr string) SettingsConfig {
	return SettingsConfig{
		Limit:        2,
		WindowHours:  5,
		RedisEnabled: true,
		RedisAddr:    addr,
		RedisPrefix:  "stylist:gen",
	}
}

func TestRedisLimiter_RollingWindow(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, "stylist:gen")
	ctx := context.Background()
	window := 5 * time.Hour
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day.Add(9 * time.Hour), day.Add(10 * time.Hour)} {
		if errRecord := limiter.Record(ctx, "u:1", window, at); errRecord != nil {
			t.Fatalf("record: %v", errRecord)
		}
	}

	// 13:00 is within 5h of both events.
	result, errAllow := limiter.Allow(ctx, "u:1", 2, window, day.Add(13*time.Hour))
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected denial at 13:00 with 2 events in window")
	}

	// 14:59 leaves only the 10:00 event inside the window.
	result, errAllow = limiter.Allow(ctx, "u:1", 2, window, day.Add(14*time.Hour+59*time.Minute))
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatal("expected allowance at 14:59 with 1 event in window")
	}
	if result.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", result.Remaining)
	}

	// Other keys are counted independently.
	result, errAllow = limiter.Allow(ctx, "u:2", 2, window, day.Add(13*time.Hour))
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed || result.Remaining != 2 {
		t.Fatalf("expected untouched allowance for other key, got %+v", result)
	}
}

func TestManager_RedisBackend(t *testing.T) {
	server := miniredis.RunT(t)

	count := func(context.Context, string, time.Duration) (int64, error) {
		t.Error("count path must not be used while redis is healthy")
		return 0, nil
	}
	manager := NewManager(func() SettingsConfig { return redisSettings(server.Addr()) }, count, nil, nil)
	user := &models.User{ID: 1}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, errAllow := manager.Allow(ctx, user)
		if errAllow != nil {
			t.Fatalf("allow: %v", errAllow)
		}
		if !result.Allowed {
			t.Fatalf("expected allowance on attempt %d", i+1)
		}
		manager.Record(ctx, user.ID)
	}

	result, errAllow := manager.Allow(ctx, user)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected denial after 2 recorded events")
	}
}

func TestManager_RedisFailureFallsBackToCount(t *testing.T) {
	var factoryCalls int
	factory := func(options *redis.Options) *redis.Client {
		factoryCalls++
		return redis.NewClient(options)
	}

	count := func(context.Context, string, time.Duration) (int64, error) {
		return 2, nil
	}
	// Port 1 is unassigned, so the connection ping fails fast.
	manager := NewManager(func() SettingsConfig { return redisSettings("127.0.0.1:1") }, count, nil, factory)
	user := &models.User{ID: 1}
	ctx := context.Background()

	result, errAllow := manager.Allow(ctx, user)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected count-path denial at the ceiling after redis failure")
	}
	if factoryCalls != 1 {
		t.Fatalf("expected 1 redis connection attempt, got %d", factoryCalls)
	}

	// The breaker holds, so the next check skips redis entirely.
	result, errAllow = manager.Allow(ctx, user)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected count-path denial while the breaker is active")
	}
	if factoryCalls != 1 {
		t.Fatalf("expected no reconnect while the breaker is active, got %d attempts", factoryCalls)
	}
}
