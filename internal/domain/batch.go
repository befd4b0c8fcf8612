package domain

import "time"

// ScanBatch represents one export run over an organization
type ScanBatch struct {
	ID           string
	Org          string
	ReportPath   string
	Repositories int
	Succeeded    int
	Failed       []string // repositories whose SBOM could not be fetched
	Packages     int
	Copyleft     int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took
func (b *ScanBatch) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}
