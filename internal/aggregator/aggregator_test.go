package aggregator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage/csvfile"
)

func seed(t *testing.T) Aggregator {
	t.Helper()
	dir := t.TempDir()
	resolve := func(org string) storage.Storage {
		return csvfile.NewCSVStorage(filepath.Join(dir, org+".csv"))
	}

	ctx := context.Background()
	s := resolve("acme")
	require.NoError(t, s.Initialize(ctx))
	for _, r := range []*domain.DependencyRecord{
		{Org: "acme", Repo: "api", Name: "go:gin", License: "MIT"},
		{Org: "acme", Repo: "api", Name: "go:readline", License: "GPL-3.0"},
		{Org: "acme", Repo: "api", Name: "go:internal", License: domain.UnknownLicense},
		{Org: "acme", Repo: "web", Name: "npm:react", License: "MIT"},
		{Org: "acme", Repo: "web", Name: "npm:ffmpeg", License: "LGPL-2.1-only"},
	} {
		require.NoError(t, s.SaveRecord(ctx, r))
	}

	return NewAggregator(resolve)
}

func TestOrgSummary(t *testing.T) {
	agg := seed(t)

	summary, err := agg.OrgSummary(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, &domain.OrgSummary{
		Org:          "acme",
		Repositories: 2,
		Dependencies: 5,
		Licenses:     4,
		Unknown:      1,
		Copyleft:     2,
	}, summary)
}

func TestLicenseCountsOrdered(t *testing.T) {
	agg := seed(t)

	counts, err := agg.LicenseCounts(context.Background(), "acme")
	require.NoError(t, err)

	require.Len(t, counts, 4)
	assert.Equal(t, &domain.LicenseCount{License: "MIT", Count: 2}, counts[0])
	assert.Equal(t, "GPL-3.0", counts[1].License)
	assert.True(t, counts[1].Copyleft)
	assert.Equal(t, "LGPL-2.1-only", counts[2].License)
	assert.Equal(t, domain.UnknownLicense, counts[3].License)
}

func TestRepoSummaries(t *testing.T) {
	agg := seed(t)

	summaries, err := agg.RepoSummaries(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, []*domain.RepoSummary{
		{Repo: "api", Dependencies: 3, Unknown: 1, Copyleft: 1},
		{Repo: "web", Dependencies: 2, Copyleft: 1},
	}, summaries)
}

func TestRepoAndCopyleftDependencies(t *testing.T) {
	agg := seed(t)
	ctx := context.Background()

	deps, err := agg.RepoDependencies(ctx, "acme", "web")
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	none, err := agg.RepoDependencies(ctx, "acme", "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	copyleft, err := agg.CopyleftDependencies(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, copyleft, 2)
	assert.Equal(t, "go:readline", copyleft[0].Name)
	assert.Equal(t, "npm:ffmpeg", copyleft[1].Name)
}

func TestMissingReport(t *testing.T) {
	agg := seed(t)

	_, err := agg.OrgSummary(context.Background(), "globex")
	assert.True(t, apperrors.IsNotFound(err))
}
