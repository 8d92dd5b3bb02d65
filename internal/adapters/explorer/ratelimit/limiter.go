package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"whalescan/pkg/errors"
)

// DefaultRequestsPerSecond matches the free-tier ceiling of the explorer APIs.
const DefaultRequestsPerSecond = 5

// ChainLimiters paces outbound explorer requests per chain. Each chain gets
// an independent bucket since upstreams are separate services even when
// multiplexed through one API key. Burst is fixed at 1 so requests are spaced
// evenly inside the rolling window instead of bunching at its start.
type ChainLimiters struct {
	rps      float64
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates limiters with the given requests-per-second ceiling.
// Non-positive values fall back to the default.
func New(requestsPerSecond float64) *ChainLimiters {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &ChainLimiters{
		rps:      requestsPerSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the chain's bucket grants a slot or ctx is done.
// The slot is consumed; slots regenerate over time, not on release.
func (c *ChainLimiters) Wait(ctx context.Context, chainID string) error {
	if err := c.limiter(chainID).Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", chainID)
	}
	return nil
}

// Allow reports whether a slot is immediately available, consuming it if so.
func (c *ChainLimiters) Allow(chainID string) bool {
	return c.limiter(chainID).Allow()
}

func (c *ChainLimiters) limiter(chainID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[chainID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.rps), 1)
		c.limiters[chainID] = l
	}
	return l
}
