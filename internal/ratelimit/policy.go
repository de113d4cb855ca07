package ratelimit

import "time"

// LimitConfig is one window/ceiling pair.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps scopes to the limits enforced for them. A request is allowed
// only when every limit of every applicable scope holds.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the standing limits: a global ceiling of 100
// requests per hour per client, relaxed reads and stricter writes.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Hour, Max: 100},
			},
			ScopeRead: {
				{Window: time.Minute, Max: 60},
			},
			ScopeWrite: {
				{Window: time.Minute, Max: 10},
			},
		},
	}
}
