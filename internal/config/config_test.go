package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, 60, cfg.Capacity)
	require.Equal(t, 1, cfg.RefillTokens)
	require.Equal(t, time.Second, cfg.RefillInterval)
	// TTL is clamped to at least five refill intervals.
	require.GreaterOrEqual(t, cfg.TTL, 5*cfg.RefillInterval)
	require.Equal(t, "ip_user_route", cfg.KeyStrategy)
	require.Equal(t, "rl", cfg.Prefix)
}

func TestLoadRateLimitConfigOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_CAPACITY", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "250ms")
	cfg := LoadRateLimitConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, 10, cfg.Capacity)
	require.Equal(t, 250*time.Millisecond, cfg.RefillInterval)
}

func TestLoadRateLimitConfigClampsInvalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	cfg := LoadRateLimitConfig()
	require.Equal(t, 1, cfg.Capacity)
	require.Equal(t, 1, cfg.RefillTokens)
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	require.True(t, cfg.Enabled)
	require.True(t, cfg.Methods["GET"])
	require.False(t, cfg.Methods["POST"])
	// Short by default: cached room calendars go stale on every booking.
	require.Equal(t, 15*time.Second, cfg.TTL)
	require.Equal(t, "user_route_query", cfg.KeyStrategy)
	require.Equal(t, "rooms", cfg.Prefix)
	require.Equal(t, 1048576, cfg.MaxBodyBytes)
}

func TestLoadCacheConfigMethodsParsing(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	require.True(t, cfg.Methods["GET"])
	require.True(t, cfg.Methods["HEAD"])
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SOME_BOOL", "yes")
	require.True(t, envBool("SOME_BOOL", false))
	t.Setenv("SOME_BOOL", "off")
	require.False(t, envBool("SOME_BOOL", true))
	require.True(t, envBool("UNSET_BOOL_KEY", true))

	t.Setenv("SOME_INT", "not a number")
	require.Equal(t, 7, envInt("SOME_INT", 7))

	t.Setenv("SOME_DUR", "90s")
	require.Equal(t, 90*time.Second, envDur("SOME_DUR", time.Minute))
}
