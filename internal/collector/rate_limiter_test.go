package collector

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
	"github.com/kurihiro0119/github-sbom-licenses/internal/testutil"
)

// sequence serves remaining values in order, repeating the last one
func sequence(values ...int) (QuotaFunc, *int) {
	calls := 0
	return func(ctx context.Context) (int, error) {
		i := calls
		if i >= len(values) {
			i = len(values) - 1
		}
		calls++
		return values[i], nil
	}, &calls
}

func TestGuardReturnsImmediatelyWithEnoughQuota(t *testing.T) {
	quota, calls := sequence(100)
	out := &bytes.Buffer{}
	guard := NewRateLimitGuard(quota, 100, time.Hour, out)

	start := time.Now()
	require.NoError(t, guard.Wait(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, out.String())
}

func TestGuardWaitsUntilQuotaRecovers(t *testing.T) {
	quota, calls := sequence(5, 99, 4000)
	out := &bytes.Buffer{}
	guard := NewRateLimitGuard(quota, 100, time.Millisecond, out)

	require.NoError(t, guard.Wait(context.Background()))

	assert.Equal(t, 3, *calls)
	assert.Equal(t, 2, strings.Count(out.String(), "less than 100 GitHub API rate-limit tokens left"))
}

func TestGuardStopsOnCancellation(t *testing.T) {
	quota, _ := sequence(0)
	guard := NewRateLimitGuard(quota, 100, time.Hour, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := guard.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardFailsWithoutRetryOnCheckError(t *testing.T) {
	calls := 0
	failing := func(ctx context.Context) (int, error) {
		calls++
		return 0, apperrors.NewUpstreamError("Error fetching rate limit info", 401, nil)
	}
	guard := NewRateLimitGuard(failing, 100, time.Millisecond, &bytes.Buffer{})

	err := guard.Wait(context.Background())

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestGuardAgainstGitHub(t *testing.T) {
	fake := &testutil.FakeGitHub{Org: "acme", Remaining: []int{12, 250}}
	c, out := newTestCollector(t, fake)

	require.NoError(t, c.WaitForRateLimit(context.Background()))

	assert.Equal(t, 2, fake.Count("/rate_limit"))
	assert.Contains(t, out.String(), "sleeping for 1ms")
}

func TestGuardAgainstGitHubFailure(t *testing.T) {
	fake := &testutil.FakeGitHub{Org: "acme", RateLimitStatus: 401}
	c, _ := newTestCollector(t, fake)

	err := c.WaitForRateLimit(context.Background())

	assert.True(t, apperrors.IsUpstream(err))
	assert.Contains(t, err.Error(), "Error fetching rate limit info")
	assert.Equal(t, 1, fake.Count("/rate_limit"))
}
