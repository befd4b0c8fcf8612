package domain

// LicenseCount is the number of dependencies carrying one license
type LicenseCount struct {
	License  string `json:"license"`
	Count    int    `json:"count"`
	Copyleft bool   `json:"copyleft"`
}

// RepoSummary summarizes the dependencies of one repository
type RepoSummary struct {
	Repo         string `json:"repo"`
	Dependencies int    `json:"dependencies"`
	Unknown      int    `json:"unknown"`
	Copyleft     int    `json:"copyleft"`
}

// OrgSummary summarizes a whole licensing report
type OrgSummary struct {
	Org          string `json:"org"`
	Repositories int    `json:"repositories"`
	Dependencies int    `json:"dependencies"`
	Licenses     int    `json:"licenses"`
	Unknown      int    `json:"unknown"`
	Copyleft     int    `json:"copyleft"`
}
