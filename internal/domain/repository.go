package domain

// Repository represents one entry of the organization repository listing.
// Only Name survives enumeration; the flags are used for filtering.
type Repository struct {
	Name       string
	Archived   bool
	Disabled   bool
	IsTemplate bool
}

// Qualifies reports whether the repository should be scanned
func (r *Repository) Qualifies() bool {
	return !r.Archived && !r.Disabled && !r.IsTemplate
}

// RepositoryCount holds the organization repository totals
type RepositoryCount struct {
	Private int
	Public  int
}

// Total returns private plus public repositories
func (c RepositoryCount) Total() int {
	return c.Private + c.Public
}
