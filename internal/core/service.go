package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pickimport/internal/logging"
)

// DefaultImportTimeout bounds one import including persistence.
const DefaultImportTimeout = 2 * time.Minute

// Store is everything the service needs from the database.
type Store interface {
	ProductLookup
	UnitLookup
	ImportLog

	// PickingByID returns ErrNotFound when no picking has the id.
	PickingByID(ctx context.Context, id int64) (Picking, error)

	// SaveMoves persists all lines in one transaction and returns the row count.
	// On error nothing is written.
	SaveMoves(ctx context.Context, lines []MovementLine) (int64, error)

	Ping(ctx context.Context) error
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Importer      ImporterConfig
	MaxConcurrent int
	MaxWaitTime   time.Duration
	Timeout       time.Duration
}

// ImportOptions modifies a single import.
type ImportOptions struct {
	// DryRun builds and returns the lines without writing them.
	DryRun bool
}

// Service runs spreadsheet imports against the database.
type Service struct {
	store    Store
	importer *Importer
	limiter  *ImportLimiter
	timeout  time.Duration
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	return &Service{
		store:    store,
		importer: NewImporter(cfg.Importer),
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		timeout:  cfg.Timeout,
	}
}

// ImportFile imports file into the picking with the given id.
//
// The picking must exist and accept new lines. Either every row becomes a
// stock move or none does. Each run, failed or not, is written to the import
// log; a log write failure is logged and does not fail the import.
func (s *Service) ImportFile(ctx context.Context, pickingID int64, file UploadedFile, opts ImportOptions) (*ImportResult, error) {
	importID := uuid.New().String()
	start := time.Now()

	log := logging.WithFields(ctx,
		"import_id", importID,
		"picking_id", pickingID,
		"file", file.Name,
		"dry_run", opts.DryRun,
	)

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("import rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Info("import started", "bytes", len(file.Data))

	result, err := s.runImport(ctx, importID, pickingID, file, opts)
	took := time.Since(start)

	rec := newImportRecord(ctx, importID, pickingID, file, result, opts.DryRun, err, took)
	if logErr := s.store.RecordImport(context.WithoutCancel(ctx), rec); logErr != nil {
		log.Error("record import failed", "error", logErr)
	}

	if err != nil {
		if row, line, value, ok := RowDetails(err); ok {
			log.Warn("import failed", "error", err, "row", row, "line", line, "value", value, "duration_ms", took.Milliseconds())
		} else {
			log.Warn("import failed", "error", err, "duration_ms", took.Milliseconds())
		}
		return nil, err
	}

	result.Duration = took
	log.Info("import finished",
		"lines", len(result.Lines),
		"inserted", result.Inserted,
		"duration_ms", took.Milliseconds(),
	)
	return result, nil
}

func (s *Service) runImport(ctx context.Context, importID string, pickingID int64, file UploadedFile, opts ImportOptions) (*ImportResult, error) {
	picking, err := s.LoadPicking(ctx, pickingID)
	if err != nil {
		return nil, err
	}

	lines, err := s.importer.Import(ctx, file, picking, s.store, s.store)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		ImportID:    importID,
		PickingID:   picking.ID,
		PickingName: picking.Name,
		FileName:    file.Name,
		Lines:       lines,
		DryRun:      opts.DryRun,
	}
	if opts.DryRun {
		return result, nil
	}

	inserted, err := s.store.SaveMoves(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("save moves: %w", err)
	}
	result.Inserted = inserted
	return result, nil
}

// LoadPicking fetches the picking and checks that it accepts new lines.
func (s *Service) LoadPicking(ctx context.Context, pickingID int64) (Picking, error) {
	picking, err := s.store.PickingByID(ctx, pickingID)
	if errors.Is(err, ErrNotFound) {
		return Picking{}, &PickingNotFoundError{PickingID: pickingID}
	}
	if err != nil {
		return Picking{}, fmt.Errorf("load picking %d: %w", pickingID, err)
	}
	if !picking.AcceptsLines() {
		return Picking{}, &PickingLockedError{PickingID: picking.ID, State: picking.State}
	}
	return picking, nil
}

// ImportHistory lists the most recent import runs for a picking, newest first.
func (s *Service) ImportHistory(ctx context.Context, pickingID int64, limit int) ([]ImportRecord, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	recs, err := s.store.ListImports(ctx, pickingID, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports for picking %d: %w", pickingID, err)
	}
	return recs, nil
}

// Template returns the downloadable .xlsx template.
func (s *Service) Template() ([]byte, error) {
	return Template()
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ImporterConfig returns the importer settings with defaults applied.
func (s *Service) ImporterConfig() ImporterConfig {
	return s.importer.Config()
}
