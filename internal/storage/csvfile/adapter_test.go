package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
)

func TestInitializeWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme_repo_dependency_licensing.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\n"), 0o644))

	s := NewCSVStorage(path)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.SaveRecord(ctx, &domain.DependencyRecord{Org: "acme", Repo: "api", Name: "npm:lodash", License: "MIT"}))
	require.NoError(t, s.SaveRecord(ctx, &domain.DependencyRecord{Org: "acme", Repo: "api", Name: "npm:left-pad", License: domain.UnknownLicense}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"org,repo,dependency_name,license\n"+
			"acme,api,npm:lodash,MIT\n"+
			"acme,api,npm:left-pad,Unknown\n",
		string(data))
}

func TestRecordsRoundTripWithQuoting(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "report.csv"))
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	rec := &domain.DependencyRecord{Org: "acme", Repo: "web", Name: "pkg:npm/@scope/a,b", License: "MIT OR \"GPL-2.0\""}
	require.NoError(t, s.SaveRecord(ctx, rec))

	records, err := s.GetRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestSaveRecordRequiresInitializedReport(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "missing.csv"))

	err := s.SaveRecord(context.Background(), &domain.DependencyRecord{Org: "acme"})
	assert.Error(t, err)
}

func TestGetRecordsMissingReport(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "missing.csv"))

	_, err := s.GetRecords(context.Background())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetRecordsRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c,d\n1,2,3,4\n"), 0o644))

	_, err := NewCSVStorage(path).GetRecords(context.Background())
	assert.ErrorContains(t, err, "unexpected header")
}
