package core

import (
	"context"
	"time"
)

// ImportStatus is the outcome recorded for one import run.
type ImportStatus string

const (
	ImportCommitted ImportStatus = "committed"
	ImportDryRun    ImportStatus = "dry_run"
	ImportFailed    ImportStatus = "failed"
)

// ImportRecord is one row of the import log.
type ImportRecord struct {
	ImportID     string        `json:"importId"`
	PickingID    int64         `json:"pickingId"`
	FileName     string        `json:"fileName"`
	Status       ImportStatus  `json:"status"`
	Lines        int           `json:"lines"`
	Inserted     int64         `json:"inserted"`
	ErrorCode    string        `json:"errorCode,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	Duration     time.Duration `json:"durationNs"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// ImportLog stores the history of import runs.
type ImportLog interface {
	RecordImport(ctx context.Context, rec ImportRecord) error
	ListImports(ctx context.Context, pickingID int64, limit int) ([]ImportRecord, error)
	PurgeImports(ctx context.Context, before time.Time) (int64, error)
}

// DefaultHistoryLimit caps ListImports when the caller passes no limit.
const DefaultHistoryLimit = 50

// newImportRecord builds the log entry for a finished run. err may be nil.
func newImportRecord(ctx context.Context, importID string, pickingID int64, file UploadedFile, result *ImportResult, dryRun bool, err error, took time.Duration) ImportRecord {
	meta := RequestMetaFromContext(ctx)
	rec := ImportRecord{
		ImportID:  importID,
		PickingID: pickingID,
		FileName:  file.Name,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Duration:  took,
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case err != nil:
		msg := MapError(err)
		rec.Status = ImportFailed
		rec.ErrorCode = msg.Code
		rec.ErrorMessage = err.Error()
	case dryRun:
		rec.Status = ImportDryRun
	default:
		rec.Status = ImportCommitted
	}

	if result != nil {
		rec.Lines = len(result.Lines)
		rec.Inserted = result.Inserted
	}
	return rec
}
