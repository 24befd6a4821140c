package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/pickimport/internal/core"
)

const (
	insertImportSQL = `
INSERT INTO picking_import_log (
    import_id, picking_id, file_name, status, lines, inserted,
    error_code, error_message, ip_address, user_agent, duration_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	listImportsSQL = `
SELECT import_id, picking_id, file_name, status, lines, inserted,
       error_code, error_message, ip_address, user_agent, duration_ms, created_at
FROM picking_import_log
WHERE picking_id = $1
ORDER BY created_at DESC
LIMIT $2`

	purgeImportsSQL = `DELETE FROM picking_import_log WHERE created_at < $1`
)

// RecordImport appends one entry to the import log.
func (s *Store) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertImportSQL,
		toPgUUID(rec.ImportID),
		rec.PickingID,
		rec.FileName,
		string(rec.Status),
		int32(rec.Lines),
		rec.Inserted,
		toPgText(rec.ErrorCode),
		toPgText(rec.ErrorMessage),
		toPgText(rec.IPAddress),
		toPgText(rec.UserAgent),
		rec.Duration.Milliseconds(),
		created,
	)
	if err != nil {
		return fmt.Errorf("insert import log %s: %w", rec.ImportID, err)
	}
	return nil
}

// ListImports returns up to limit entries for a picking, newest first.
func (s *Store) ListImports(ctx context.Context, pickingID int64, limit int) ([]core.ImportRecord, error) {
	rows, err := s.pool.Query(ctx, listImportsSQL, pickingID, limit)
	if err != nil {
		return nil, fmt.Errorf("query import log: %w", err)
	}
	defer rows.Close()

	var recs []core.ImportRecord
	for rows.Next() {
		var (
			rec        core.ImportRecord
			id         pgtype.UUID
			status     string
			lines      int32
			errCode    pgtype.Text
			errMessage pgtype.Text
			ip         pgtype.Text
			ua         pgtype.Text
			durationMs int64
		)
		if err := rows.Scan(&id, &rec.PickingID, &rec.FileName, &status, &lines, &rec.Inserted,
			&errCode, &errMessage, &ip, &ua, &durationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import log: %w", err)
		}

		rec.ImportID = pgUUIDToString(id)
		rec.Status = core.ImportStatus(status)
		rec.Lines = int(lines)
		rec.ErrorCode = errCode.String
		rec.ErrorMessage = errMessage.String
		rec.IPAddress = ip.String
		rec.UserAgent = ua.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read import log: %w", err)
	}
	return recs, nil
}

// PurgeImports deletes log entries created before the cutoff.
func (s *Store) PurgeImports(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, purgeImportsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("purge import log: %w", err)
	}
	return tag.RowsAffected(), nil
}
