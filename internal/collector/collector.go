package collector

import (
	"context"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
)

// Collector defines the interface for collecting dependency data from GitHub
type Collector interface {
	// WaitForRateLimit blocks until enough API quota is left
	WaitForRateLimit(ctx context.Context) error

	// GetRepositoryCount retrieves the private and public repository totals of an organization
	GetRepositoryCount(ctx context.Context, org string) (domain.RepositoryCount, error)

	// GetRepositoryNames retrieves the names of all active, non-template repositories
	GetRepositoryNames(ctx context.Context, org string) ([]string, error)

	// GetSBOM retrieves the dependency-graph SBOM of a repository
	GetSBOM(ctx context.Context, org, repo string) (*domain.SBOMDocument, error)
}
