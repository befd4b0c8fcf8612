package storage

import (
	"context"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
)

// Storage is the abstract interface for a licensing report
type Storage interface {
	// Initialize truncates the report and writes the header row
	Initialize(ctx context.Context) error

	// SaveRecord appends one dependency row; the row is on disk when it returns
	SaveRecord(ctx context.Context, record *domain.DependencyRecord) error

	// GetRecords reads every dependency row back, header excluded
	GetRecords(ctx context.Context) ([]*domain.DependencyRecord, error)

	// Path returns the report location
	Path() string
}
