package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v55/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
)

const perPage = 100

// Options configures a GitHub collector
type Options struct {
	// BaseURL overrides the REST endpoint (GitHub Enterprise, tests)
	BaseURL string

	RateLimitThreshold int
	RateLimitDelay     time.Duration

	// Out receives progress lines, os.Stdout when nil
	Out io.Writer
}

// githubCollector implements Collector using GitHub API
type githubCollector struct {
	client *github.Client
	guard  *RateLimitGuard
	out    io.Writer
}

// NewGitHubCollector creates a new GitHub collector
func NewGitHubCollector(ctx context.Context, token string, opts Options) (Collector, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	// waits out secondary rate limits; primary quota is handled by the guard
	rateLimited, err := github_ratelimit.NewRateLimitWaiterClient(tc.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit transport: %w", err)
	}
	client := github.NewClient(rateLimited)

	if opts.BaseURL != "" {
		baseURL := opts.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	c := &githubCollector{
		client: client,
		out:    out,
	}
	c.guard = NewRateLimitGuard(c.remainingQuota, opts.RateLimitThreshold, opts.RateLimitDelay, out)
	return c, nil
}

// WaitForRateLimit blocks until enough API quota is left
func (c *githubCollector) WaitForRateLimit(ctx context.Context) error {
	return c.guard.Wait(ctx)
}

// remainingQuota queries the core rate limit of the token
func (c *githubCollector) remainingQuota(ctx context.Context) (int, error) {
	limits, resp, err := c.client.RateLimits(ctx)
	if err != nil {
		return 0, upstreamError("Error fetching rate limit info", resp, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, upstreamError("Error fetching rate limit info", resp, nil)
	}
	core := limits.GetCore()
	if core == nil {
		return 0, apperrors.NewUpstreamError("Error fetching rate limit info: no core rate in response", resp.StatusCode, nil)
	}
	return core.Remaining, nil
}

// GetRepositoryCount retrieves the private and public repository totals of an organization
func (c *githubCollector) GetRepositoryCount(ctx context.Context, org string) (domain.RepositoryCount, error) {
	if err := c.guard.Wait(ctx); err != nil {
		return domain.RepositoryCount{}, err
	}

	o, resp, err := c.client.Organizations.Get(ctx, org)
	if err != nil {
		return domain.RepositoryCount{}, upstreamError("Error fetching org info", resp, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.RepositoryCount{}, upstreamError("Error fetching org info", resp, nil)
	}

	count := domain.RepositoryCount{
		Private: int(o.GetOwnedPrivateRepos()),
		Public:  int(o.GetPublicRepos()),
	}
	log.Debug().Str("org", org).Int("private", count.Private).Int("public", count.Public).Msg("counted repositories")
	return count, nil
}

// GetRepositoryNames retrieves the names of all active, non-template repositories.
// Pages 1 through total/100+1 are requested, so when the total is a multiple of 100
// or leaves a partial page the last request simply returns an empty page.
func (c *githubCollector) GetRepositoryNames(ctx context.Context, org string) ([]string, error) {
	if err := c.guard.Wait(ctx); err != nil {
		return nil, err
	}

	count, err := c.GetRepositoryCount(ctx, org)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Fetching all repos")

	var names []string
	lastPage := count.Total()/perPage + 1
	for page := 1; page <= lastPage; page++ {
		fmt.Fprintf(c.out, "Fetching repos page %d\n", page)

		if err := c.guard.Wait(ctx); err != nil {
			return nil, err
		}

		opts := &github.RepositoryListByOrgOptions{
			ListOptions: github.ListOptions{PerPage: perPage, Page: page},
		}
		repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, upstreamError("Error fetching repos", resp, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, upstreamError("Error fetching repos", resp, nil)
		}

		for _, repo := range repos {
			r := &domain.Repository{
				Name:       repo.GetName(),
				Archived:   repo.GetArchived(),
				Disabled:   repo.GetDisabled(),
				IsTemplate: repo.GetIsTemplate(),
			}
			if r.Qualifies() {
				names = append(names, r.Name)
			}
		}
	}

	fmt.Fprintln(c.out)
	return names, nil
}

// GetSBOM retrieves the dependency-graph SBOM of a repository.
// A non-200 answer from the SBOM endpoint yields an SBOM_UNAVAILABLE AppError whose Message
// is the API error message. Rate limit failures stay UPSTREAM_ERROR and an error without any
// HTTP response is returned as is.
func (c *githubCollector) GetSBOM(ctx context.Context, org, repo string) (*domain.SBOMDocument, error) {
	if err := c.guard.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("repos/%v/%v/dependency-graph/sbom", url.PathEscape(org), url.PathEscape(repo))
	req, err := c.client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sbom request for %s/%s: %w", org, repo, err)
	}

	log.Debug().Str("org", org).Str("repo", repo).Msg("fetching sbom")

	var doc domain.SBOMDocument
	resp, err := c.client.Do(ctx, req, &doc)
	if err != nil {
		if resp == nil {
			return nil, fmt.Errorf("failed to fetch sbom for %s/%s: %w", org, repo, err)
		}
		return nil, apperrors.NewSBOMUnavailableError(apiMessage(err), resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewSBOMUnavailableError(http.StatusText(resp.StatusCode), resp.StatusCode, nil)
	}

	return &doc, nil
}

// upstreamError wraps a failed infrastructure call
func upstreamError(message string, resp *github.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return apperrors.NewUpstreamError(message, resp.StatusCode, err)
}

// apiMessage extracts the message GitHub reported for a failed request
func apiMessage(err error) string {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		return errResp.Message
	}
	return err.Error()
}
