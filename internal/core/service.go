package core

// service.go is the entry point tying the pipeline to a storage handle and
// the configured limits. Each call is single-pass and stateless across
// calls; the Service itself holds no mutable state, so it is safe to share
// between concurrent requests.

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/stockcsv/internal/config"
	"github.com/google/uuid"
)

// Service exposes the import/export operations over a Store.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService creates a service over the given store. cfg may be nil, in
// which case the package defaults apply.
func NewService(st Store, cfg *config.Config) *Service {
	return &Service{store: st, cfg: cfg}
}

// Inspect analyzes an uploaded file without touching storage.
func (s *Service) Inspect(raw []byte, previewLimit int) (*InspectionResult, error) {
	if previewLimit <= 0 {
		previewLimit = s.previewLimit()
	}
	return Inspect(raw, InspectOptions{PreviewLimit: previewLimit})
}

// DryRun loads the category reference set once and runs the storage-free
// validation pass.
func (s *Service) DryRun(ctx context.Context, raw []byte, opts DryRunOptions) (*DryRunReport, error) {
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = s.previewLimit()
	}
	if opts.ErrorLimit <= 0 {
		opts.ErrorLimit = s.errorLimit()
	}

	categories, err := s.store.CategoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	report, err := DryRun(raw, opts, ReferenceSets{CategoryIDs: categories})
	if err != nil {
		return nil, err
	}

	slog.Info("dry run completed",
		"encoding", report.Encoding,
		"total_rows", report.TotalRows,
		"valid_rows", report.ValidRows,
		"errors", report.ErrorCount,
		"error_limit_hit", report.ErrorLimitHit,
	)
	return report, nil
}

// ImportOptions tunes an import commit.
type ImportOptions struct {
	Upsert     bool
	ChunkSize  int // rows per atomic batch; <=0 selects the configured size
	KeyFields  []string
	ErrorLimit int
	Aliases    map[string]string
}

// Import validates the file and commits the valid rows in chunked atomic
// batches. Unlike DryRun, missing required headers are fatal here: nothing
// is written unless the file's shape is right.
func (s *Service) Import(ctx context.Context, raw []byte, opts ImportOptions) (*ReconcileOutcome, error) {
	importID := uuid.New().String()
	log := slog.With("import_id", importID)

	text, encodingUsed, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	delimiter := SniffDelimiter(text)

	r := newCSVReader(text, delimiter)
	headers, err := r.Read()
	if err != nil {
		return nil, &HeaderError{Missing: requiredImportFields(opts.KeyFields)}
	}
	hm := NormalizeHeaders(headers, opts.Aliases)
	if missing := missingRequired(hm.Normalized(headers), opts.KeyFields); len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}

	categories, err := s.store.CategoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	refs := ReferenceSets{CategoryIDs: categories}

	errorLimit := opts.ErrorLimit
	if errorLimit <= 0 {
		errorLimit = s.errorLimit()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.batchSize()
	}

	tracker := newKeyTracker(opts.KeyFields)
	explicitKey := len(opts.KeyFields) > 0

	outcome := &ReconcileOutcome{
		ImportID: importID,
		Upsert:   opts.Upsert,
		Errors:   []RowError{},
	}
	var valid []ValidRow

	rowNum := 1 // header row
	for {
		if len(outcome.Errors) >= errorLimit {
			outcome.ErrorLimitHit = true
			break
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		outcome.TotalRows++
		if err != nil {
			outcome.Errors = append(outcome.Errors, RowError{rowNum, "", "", fmt.Sprintf("malformed row: %v", err)})
			continue
		}

		row := normalizeRow(rec, headers, hm)
		before := len(outcome.Errors)

		clean, rowErrs := ValidateRow(row, rowNum, refs)
		outcome.Errors = append(outcome.Errors, rowErrs...)

		switch status, first := tracker.check(row, rowNum); status {
		case keyDuplicate:
			outcome.Errors = append(outcome.Errors, RowError{rowNum, tracker.label(), CodeKeyDuplicate,
				fmt.Sprintf("duplicate key (first seen at row %d)", first)})
		case keyIncomplete:
			if explicitKey {
				outcome.Errors = append(outcome.Errors, RowError{rowNum, tracker.label(), CodeKeyIncomplete,
					"key field is empty"})
			}
		}

		if len(outcome.Errors) == before && clean != nil {
			valid = append(valid, ValidRow{Num: rowNum, Clean: *clean})
		}
	}

	existing := map[int64]struct{}{}
	if opts.Upsert {
		var ids []int64
		for _, vr := range valid {
			if vr.Clean.ID != nil {
				ids = append(ids, *vr.Clean.ID)
			}
		}
		if len(ids) > 0 {
			existing, err = s.store.ExistingStockIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("load existing ids: %w", err)
			}
		}
	}

	created, updated, reconErrs, batchErrs := Reconcile(ctx, s.store, valid, existing, ReconcileOptions{
		Upsert:    opts.Upsert,
		BatchSize: chunkSize,
	})

	outcome.Created = created
	outcome.Updated = updated
	outcome.Errors = append(outcome.Errors, reconErrs...)
	outcome.BatchErrors = batchErrs
	outcome.ValidRows = len(valid) - len(reconErrs)
	outcome.InvalidRows = outcome.TotalRows - outcome.ValidRows

	log.Info("import committed",
		"encoding", encodingUsed,
		"total_rows", outcome.TotalRows,
		"valid_rows", outcome.ValidRows,
		"created", created,
		"updated", updated,
		"failed_batches", len(batchErrs),
	)
	return outcome, nil
}

// ExportStream starts a lazy CSV export over the store.
func (s *Service) ExportStream(opts ExportOptions) *ExportStream {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = s.exportChunkSize()
	}
	return NewExportStream(s.store, opts)
}

func (s *Service) previewLimit() int {
	if s.cfg != nil && s.cfg.Import.PreviewLimit > 0 {
		return s.cfg.Import.PreviewLimit
	}
	return DefaultPreviewLimit
}

func (s *Service) errorLimit() int {
	if s.cfg != nil && s.cfg.Import.ErrorLimit > 0 {
		return s.cfg.Import.ErrorLimit
	}
	return DefaultErrorLimit
}

func (s *Service) batchSize() int {
	if s.cfg != nil && s.cfg.Import.BatchSize > 0 {
		return s.cfg.Import.BatchSize
	}
	return DefaultBatchSize
}

func (s *Service) exportChunkSize() int {
	if s.cfg != nil && s.cfg.Export.ChunkSize > 0 {
		return s.cfg.Export.ChunkSize
	}
	return DefaultExportChunkSize
}
