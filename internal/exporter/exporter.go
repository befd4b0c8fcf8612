package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kurihiro0119/github-sbom-licenses/internal/collector"
	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
)

const banner = "##################################################"

// Exporter writes the dependency licensing report of an organization
type Exporter struct {
	collector collector.Collector
	storage   storage.Storage
	out       io.Writer
}

// NewExporter creates a new exporter; out defaults to os.Stdout
func NewExporter(coll collector.Collector, store storage.Storage, out io.Writer) *Exporter {
	if out == nil {
		out = os.Stdout
	}
	return &Exporter{
		collector: coll,
		storage:   store,
		out:       out,
	}
}

// Run enumerates the organization repositories, initializes the report and
// appends one row per SBOM package, repository by repository.
// Repositories whose SBOM cannot be fetched are reported and skipped; any other
// failure aborts the run, leaving the rows written so far in the report.
func (e *Exporter) Run(ctx context.Context, org string) (*domain.ScanBatch, error) {
	batch := &domain.ScanBatch{
		ID:         uuid.New().String(),
		Org:        org,
		ReportPath: e.storage.Path(),
		StartedAt:  time.Now(),
	}
	logger := log.With().Str("run", batch.ID).Str("org", org).Logger()

	fmt.Fprintln(e.out, banner)
	fmt.Fprintln(e.out, "Finding all repos' SBOMs and storing in CSV")
	fmt.Fprintf(e.out, "The CSV will be stored at %s\n", batch.ReportPath)
	fmt.Fprintln(e.out, banner)

	if err := e.collector.WaitForRateLimit(ctx); err != nil {
		return nil, err
	}

	names, err := e.collector.GetRepositoryNames(ctx, org)
	if err != nil {
		return nil, err
	}
	batch.Repositories = len(names)
	logger.Debug().Int("repositories", len(names)).Msg("enumerated repositories")

	if err := e.storage.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize report: %w", err)
	}

	for i, name := range names {
		if err := e.exportRepository(ctx, batch, name, i+1, len(names)); err != nil {
			return nil, err
		}
	}

	batch.FinishedAt = time.Now()
	logger.Info().
		Int("succeeded", batch.Succeeded).
		Int("failed", len(batch.Failed)).
		Int("packages", batch.Packages).
		Dur("took", batch.Duration()).
		Msg("export finished")
	return batch, nil
}

func (e *Exporter) exportRepository(ctx context.Context, batch *domain.ScanBatch, repo string, index, total int) error {
	doc, err := e.collector.GetSBOM(ctx, batch.Org, repo)
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeSBOMUnavailable {
			return err
		}
		fmt.Fprintf(e.out, "❌ Error fetching SBOM for repo %s (%d/%d)\n", repo, index, total)
		fmt.Fprintf(e.out, "Error message: %s\n", appErr.Message)
		batch.Failed = append(batch.Failed, repo)
		return nil
	}

	fmt.Fprintf(e.out, "✅ Successfully fetched SBOM for repo %s (%d/%d)\n", repo, index, total)
	batch.Succeeded++

	for i, pkg := range doc.SBOM.Packages {
		// a JSON null entry carries no name to report
		if pkg == nil {
			log.Debug().Str("org", batch.Org).Str("repo", repo).Int("index", i).Msg("skipped null sbom package")
			continue
		}
		record := domain.NewDependencyRecord(batch.Org, repo, pkg)
		if record.IsCopyleft() {
			fmt.Fprintf(e.out, "- ⬅️ Copyleft licensed tool found: %s with license: %s\n", record.Name, record.License)
			batch.Copyleft++
		}
		if err := e.storage.SaveRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to write dependency %s of %s: %w", record.Name, repo, err)
		}
		batch.Packages++
	}
	return nil
}
