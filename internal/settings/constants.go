// Package settings exposes DB-backed runtime configuration values.
package settings

// DB config keys and defaults for settings.
const (
	// FreeGenerationLimitKey controls how many generations free users get per window.
	FreeGenerationLimitKey = "FREE_GENERATION_LIMIT"
	// GenerationWindowHoursKey controls the trailing window size in hours.
	GenerationWindowHoursKey = "GENERATION_WINDOW_HOURS"
	// LimiterRedisEnabledKey toggles Redis-backed generation counting.
	LimiterRedisEnabledKey = "LIMITER_REDIS_ENABLED"
	// LimiterRedisAddrKey defines the Redis address for generation counting.
	LimiterRedisAddrKey = "LIMITER_REDIS_ADDR"
	// LimiterRedisPasswordKey defines the Redis password for generation counting.
	LimiterRedisPasswordKey = "LIMITER_REDIS_PASSWORD"
	// LimiterRedisDBKey defines the Redis DB index for generation counting.
	LimiterRedisDBKey = "LIMITER_REDIS_DB"
	// LimiterRedisPrefixKey defines the Redis key prefix for generation counting.
	LimiterRedisPrefixKey = "LIMITER_REDIS_PREFIX"
	// DefaultFreeGenerationLimit is the fallback free-tier generation ceiling.
	DefaultFreeGenerationLimit = 2
	// DefaultGenerationWindowHours is the fallback trailing window in hours.
	DefaultGenerationWindowHours = 5
	// DefaultLimiterRedisPrefix is the fallback Redis key prefix.
	DefaultLimiterRedisPrefix = "stylist:gen"
)
