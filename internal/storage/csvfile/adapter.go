package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
)

// csvStorage implements the Storage interface on a single CSV file.
// The file is opened and closed around every write so that rows written
// before a crash stay on disk.
type csvStorage struct {
	path string
}

// NewCSVStorage creates a new CSV storage instance
func NewCSVStorage(path string) storage.Storage {
	return &csvStorage{path: path}
}

// Path returns the report location
func (s *csvStorage) Path() string {
	return s.path
}

// Initialize truncates the report and writes the header row
func (s *csvStorage) Initialize(ctx context.Context) error {
	return s.write(ctx, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.ReportHeader)
}

// SaveRecord appends one dependency row
func (s *csvStorage) SaveRecord(ctx context.Context, record *domain.DependencyRecord) error {
	return s.write(ctx, os.O_WRONLY|os.O_APPEND, record.Row())
}

func (s *csvStorage) write(ctx context.Context, flag int, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %s: %w", s.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush report %s: %w", s.path, err)
	}
	return f.Close()
}

// GetRecords reads every dependency row back, header excluded
func (s *csvStorage) GetRecords(ctx context.Context) ([]*domain.DependencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("report " + s.path)
		}
		return nil, fmt.Errorf("failed to open report %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(domain.ReportHeader)

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, apperrors.NewInternalError("report "+s.path+" is empty", err)
		}
		return nil, apperrors.NewInternalError("failed to read report "+s.path, err)
	}
	if !slices.Equal(header, domain.ReportHeader) {
		return nil, apperrors.NewInternalError(fmt.Sprintf("report %s has unexpected header %v", s.path, header), nil)
	}

	var records []*domain.DependencyRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewInternalError("failed to read report "+s.path, err)
		}
		records = append(records, &domain.DependencyRecord{
			Org:     row[0],
			Repo:    row[1],
			Name:    row[2],
			License: row[3],
		})
	}

	return records, nil
}
