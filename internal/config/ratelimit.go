package config

import (
	"fmt"
	"strings"
	"time"
)

// rateKeyStrategies lists the bucket keys the limiter knows how to build.
var rateKeyStrategies = map[string]bool{
	"ip":         true,
	"user":       true,
	"route":      true,
	"ip_route":   true,
	"user_route": true,
	"all":        true,
}

// RateLimitConfig configures the Redis token bucket guarding the reserve
// endpoint.  The default key strategy buckets per requester and route so one
// member hammering reserve cannot starve others.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables and returns the
// normalized bucket.  RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are
// shorthands that win over CAPACITY and the REFILL_TOKENS/INTERVAL pair.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		cfg.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		cfg.RefillTokens = 1
		cfg.RefillInterval = every
	}
	return cfg.normalize()
}

// normalize clamps the bucket to at least one token refilled per positive
// interval, keeps idle keys for five intervals at minimum and rejects key
// strategies the limiter cannot build.
func (c RateLimitConfig) normalize() (RateLimitConfig, error) {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)

	c.KeyStrategy = strings.ToLower(c.KeyStrategy)
	if !rateKeyStrategies[c.KeyStrategy] {
		return c, fmt.Errorf("unknown rate limit key strategy %q", c.KeyStrategy)
	}
	return c, nil
}
