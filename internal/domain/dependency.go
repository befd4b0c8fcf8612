package domain

// ReportHeader is the column header of a licensing report
var ReportHeader = []string{"org", "repo", "dependency_name", "license"}

// DependencyRecord is one row of a licensing report
type DependencyRecord struct {
	Org     string `json:"org"`
	Repo    string `json:"repo"`
	Name    string `json:"dependency_name"`
	License string `json:"license"`
}

// NewDependencyRecord builds the report row for a package of a repository
func NewDependencyRecord(org, repo string, pkg *SBOMPackage) *DependencyRecord {
	return &DependencyRecord{
		Org:     org,
		Repo:    repo,
		Name:    pkg.Name,
		License: pkg.License(),
	}
}

// Row returns the record in report column order
func (d *DependencyRecord) Row() []string {
	return []string{d.Org, d.Repo, d.Name, d.License}
}

// IsCopyleft reports whether the dependency carries a copyleft license
func (d *DependencyRecord) IsCopyleft() bool {
	return IsCopyleft(d.License)
}
