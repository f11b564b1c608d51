package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the per-user response cache. When
// Enabled is false or no Redis client is configured, caching is disabled.
// Entries are keyed by caller and by a per-caller generation counter that
// every successful write bumps, so a cached list never outlives a change
// its owner made.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	MethodList   string        `env:"CACHE_METHODS" envDefault:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"fitness:cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Methods returns the cacheable HTTP methods, upper-cased.
func (c CacheConfig) Methods() map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(c.MethodList, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
