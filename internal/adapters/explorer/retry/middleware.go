package retry

import (
	"context"
	"math"
	"net"
	"time"

	"whalescan/pkg/errors"
)

// Config contains retry configuration.
type Config struct {
	MaxAttempts        int           // total attempts, not re-tries
	BaseDelay          time.Duration // doubled after each failed attempt
	MaxDelay           time.Duration
	RateLimitBaseDelay time.Duration // longer base when the upstream throttles
	Multiplier         float64
}

// DefaultConfig returns the policy validated against the explorer APIs:
// three attempts, half-second base doubling each attempt, a longer pause
// when the shared API key is throttled elsewhere.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        3,
		BaseDelay:          500 * time.Millisecond,
		MaxDelay:           10 * time.Second,
		RateLimitBaseDelay: 1500 * time.Millisecond,
		Multiplier:         2.0,
	}
}

// Middleware retries transient upstream failures with exponential backoff.
// Permanent failures (invalid request, parse mismatch, unknown chain) pass
// through on the first attempt.
type Middleware struct {
	config Config
}

// New creates a retry middleware, filling zero config fields with defaults.
func New(config Config) *Middleware {
	def := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.RateLimitBaseDelay <= 0 {
		config.RateLimitBaseDelay = def.RateLimitBaseDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = def.Multiplier
	}
	return &Middleware{config: config}
}

// Do executes fn until it succeeds, fails permanently, or the attempt
// budget is exhausted. The last error is returned with its kind intact so
// callers can still classify it with errors.Is.
func (m *Middleware) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < m.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == m.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(m.delay(attempt, err)):
		}
	}

	return errors.Wrapf(lastErr, "giving up after %d attempts", m.config.MaxAttempts)
}

// delay computes the backoff before the next attempt. Upstream throttling
// gets a longer base than generic transport failures.
func (m *Middleware) delay(attempt int, err error) time.Duration {
	base := m.config.BaseDelay
	if errors.Is(err, errors.ErrRateLimited) {
		base = m.config.RateLimitBaseDelay
	}

	d := time.Duration(float64(base) * math.Pow(m.config.Multiplier, float64(attempt)))
	if d > m.config.MaxDelay {
		d = m.config.MaxDelay
	}
	return d
}

// IsRetryable reports whether an error is transient. Only transport-level
// failures and upstream throttling qualify; an API-level rejection or a
// shape mismatch signals a permanent condition.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errors.ErrUpstreamUnavailable) || errors.Is(err, errors.ErrRateLimited) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
