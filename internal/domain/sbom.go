package domain

import "strings"

// UnknownLicense is recorded when a package carries no concluded license
const UnknownLicense = "Unknown"

// SBOMDocument is the dependency-graph SBOM export of a repository
type SBOMDocument struct {
	SBOM SBOMInfo `json:"sbom"`
}

// SBOMInfo is the SPDX document inside an SBOM export
type SBOMInfo struct {
	SPDXID      string         `json:"SPDXID,omitempty"`
	SPDXVersion string         `json:"spdxVersion,omitempty"`
	Name        string         `json:"name,omitempty"`
	Packages    []*SBOMPackage `json:"packages"`
}

// SBOMPackage is a single dependency listed in an SBOM
type SBOMPackage struct {
	SPDXID           string  `json:"SPDXID,omitempty"`
	Name             string  `json:"name"`
	VersionInfo      string  `json:"versionInfo,omitempty"`
	LicenseConcluded *string `json:"licenseConcluded,omitempty"`
}

// License returns the concluded license, or UnknownLicense when absent
func (p *SBOMPackage) License() string {
	if p.LicenseConcluded == nil {
		return UnknownLicense
	}
	return *p.LicenseConcluded
}

// IsCopyleft reports whether a license string belongs to the GPL family
func IsCopyleft(license string) bool {
	return strings.Contains(strings.ToUpper(license), "GPL")
}
