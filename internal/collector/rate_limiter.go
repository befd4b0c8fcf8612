package collector

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// QuotaFunc reports the remaining API quota of the current token
type QuotaFunc func(ctx context.Context) (int, error)

// RateLimitGuard holds requests back while the remaining API quota is below a threshold.
// All callers share one guard, so concurrent waiters are serialized on the quota check.
type RateLimitGuard struct {
	mu        sync.Mutex
	quota     QuotaFunc
	threshold int
	delay     time.Duration
	out       io.Writer
}

// NewRateLimitGuard creates a new rate limit guard
func NewRateLimitGuard(quota QuotaFunc, threshold int, delay time.Duration, out io.Writer) *RateLimitGuard {
	return &RateLimitGuard{
		quota:     quota,
		threshold: threshold,
		delay:     delay,
		out:       out,
	}
}

// quotaLowError signals a retryable check: remaining quota below threshold
type quotaLowError struct {
	remaining int
}

func (e *quotaLowError) Error() string {
	return fmt.Sprintf("%d rate-limit tokens remaining", e.remaining)
}

// Wait returns once the remaining quota is at or above the threshold.
// It re-checks every delay without an attempt limit; only ctx ends the wait early.
// A failed quota check is returned immediately.
func (g *RateLimitGuard) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	operation := func() error {
		remaining, err := g.quota(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		log.Debug().Int("remaining", remaining).Int("threshold", g.threshold).Msg("checked rate limit")
		if remaining < g.threshold {
			return &quotaLowError{remaining: remaining}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		fmt.Fprintf(g.out, "ℹ️  We have less than %d GitHub API rate-limit tokens left, sleeping for %s and checking again\n", g.threshold, wait)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(g.delay), ctx)
	return backoff.RetryNotify(operation, b, notify)
}
