// Package ratelimit implements the admission gate: a per-client
// sliding-window-log limiter with a trust-list bypass.
package ratelimit

import (
	"time"

	"github.com/vyrodovalexey/apigate/internal/util"
)

// Decision is the outcome of one admission evaluation.
type Decision struct {
	// Allowed indicates whether the request is admitted.
	Allowed bool

	// Trusted is set when the key bypassed the limiter. No window state
	// was touched and no rate limit headers apply.
	Trusted bool

	// Limit is the maximum number of admissions per window.
	Limit int

	// Remaining is the number of admissions left in the current window.
	Remaining int

	// RetryAfter is set on rejection. It is always the full window length,
	// an upper bound rather than the time until the oldest entry expires.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return util.CeilSeconds(d.RetryAfter)
}

// Err returns a *util.RateLimitError for rejected decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return util.NewRateLimitError(d.Limit, d.RetryAfter)
}

// Config holds configuration for the sliding window limiter.
type Config struct {
	// Limit is the maximum number of admissions per key per window.
	Limit int

	// Window is the trailing window length.
	Window time.Duration

	// Shards is the number of independently locked partitions of the key
	// space. Values below 1 select DefaultShards.
	Shards int
}

// Defaults.
const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
	DefaultShards = 64
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Limit:  DefaultLimit,
		Window: DefaultWindow,
		Shards: DefaultShards,
	}
}
