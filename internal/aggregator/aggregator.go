package aggregator

import (
	"context"
	"sort"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
)

// StorageResolver returns the report storage of an organization
type StorageResolver func(org string) storage.Storage

// Aggregator defines the interface for summarizing licensing reports
type Aggregator interface {
	// OrgSummary summarizes the whole report of an organization
	OrgSummary(ctx context.Context, org string) (*domain.OrgSummary, error)

	// LicenseCounts counts dependencies per license, most used first
	LicenseCounts(ctx context.Context, org string) ([]*domain.LicenseCount, error)

	// RepoSummaries summarizes every repository in the report
	RepoSummaries(ctx context.Context, org string) ([]*domain.RepoSummary, error)

	// RepoDependencies lists the dependencies of one repository
	RepoDependencies(ctx context.Context, org, repo string) ([]*domain.DependencyRecord, error)

	// CopyleftDependencies lists every dependency under a copyleft license
	CopyleftDependencies(ctx context.Context, org string) ([]*domain.DependencyRecord, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	resolve StorageResolver
}

// NewAggregator creates a new aggregator
func NewAggregator(resolve StorageResolver) Aggregator {
	return &aggregator{
		resolve: resolve,
	}
}

// records loads the rows of an organization report
func (a *aggregator) records(ctx context.Context, org string) ([]*domain.DependencyRecord, error) {
	all, err := a.resolve(org).GetRecords(ctx)
	if err != nil {
		return nil, err
	}

	records := all[:0]
	for _, r := range all {
		if r.Org == org {
			records = append(records, r)
		}
	}
	return records, nil
}

// OrgSummary summarizes the whole report of an organization
func (a *aggregator) OrgSummary(ctx context.Context, org string) (*domain.OrgSummary, error) {
	records, err := a.records(ctx, org)
	if err != nil {
		return nil, err
	}

	repos := make(map[string]struct{})
	licenses := make(map[string]struct{})
	summary := &domain.OrgSummary{Org: org, Dependencies: len(records)}
	for _, r := range records {
		repos[r.Repo] = struct{}{}
		licenses[r.License] = struct{}{}
		if r.License == domain.UnknownLicense {
			summary.Unknown++
		}
		if r.IsCopyleft() {
			summary.Copyleft++
		}
	}
	summary.Repositories = len(repos)
	summary.Licenses = len(licenses)

	return summary, nil
}

// LicenseCounts counts dependencies per license, most used first
func (a *aggregator) LicenseCounts(ctx context.Context, org string) ([]*domain.LicenseCount, error) {
	records, err := a.records(ctx, org)
	if err != nil {
		return nil, err
	}

	byLicense := make(map[string]*domain.LicenseCount)
	for _, r := range records {
		lc, ok := byLicense[r.License]
		if !ok {
			lc = &domain.LicenseCount{License: r.License, Copyleft: r.IsCopyleft()}
			byLicense[r.License] = lc
		}
		lc.Count++
	}

	counts := make([]*domain.LicenseCount, 0, len(byLicense))
	for _, lc := range byLicense {
		counts = append(counts, lc)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].License < counts[j].License
	})

	return counts, nil
}

// RepoSummaries summarizes every repository in the report, in report order
func (a *aggregator) RepoSummaries(ctx context.Context, org string) ([]*domain.RepoSummary, error) {
	records, err := a.records(ctx, org)
	if err != nil {
		return nil, err
	}

	var summaries []*domain.RepoSummary
	byRepo := make(map[string]*domain.RepoSummary)
	for _, r := range records {
		s, ok := byRepo[r.Repo]
		if !ok {
			s = &domain.RepoSummary{Repo: r.Repo}
			byRepo[r.Repo] = s
			summaries = append(summaries, s)
		}
		s.Dependencies++
		if r.License == domain.UnknownLicense {
			s.Unknown++
		}
		if r.IsCopyleft() {
			s.Copyleft++
		}
	}

	return summaries, nil
}

// RepoDependencies lists the dependencies of one repository
func (a *aggregator) RepoDependencies(ctx context.Context, org, repo string) ([]*domain.DependencyRecord, error) {
	return a.filter(ctx, org, func(r *domain.DependencyRecord) bool {
		return r.Repo == repo
	})
}

// CopyleftDependencies lists every dependency under a copyleft license
func (a *aggregator) CopyleftDependencies(ctx context.Context, org string) ([]*domain.DependencyRecord, error) {
	return a.filter(ctx, org, (*domain.DependencyRecord).IsCopyleft)
}

func (a *aggregator) filter(ctx context.Context, org string, keep func(*domain.DependencyRecord) bool) ([]*domain.DependencyRecord, error) {
	records, err := a.records(ctx, org)
	if err != nil {
		return nil, err
	}

	matched := []*domain.DependencyRecord{}
	for _, r := range records {
		if keep(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}
