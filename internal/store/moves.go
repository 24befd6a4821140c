package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/pickimport/internal/core"
)

var moveTable = pgx.Identifier{"stock_move"}

var moveColumns = []string{
	"picking_id",
	"picking_type_id",
	"company_id",
	"product_id",
	"product_uom",
	"name",
	"description_picking",
	"product_uom_qty",
	"location_id",
	"location_dest_id",
	"state",
	"sequence",
	"procure_method",
	"date",
	"create_date",
	"write_date",
}

// SaveMoves writes all lines in one transaction. On any error the
// transaction is rolled back and nothing is visible.
func (s *Store) SaveMoves(ctx context.Context, lines []core.MovementLine) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := InsertMoves(ctx, tx, lines)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// InsertMoves copies lines into stock_move using db, normally a transaction.
// It fails if fewer rows than lines were written.
func InsertMoves(ctx context.Context, db DBTX, lines []core.MovementLine) (int64, error) {
	n, err := db.CopyFrom(ctx, moveTable, moveColumns, pgx.CopyFromSlice(len(lines), func(i int) ([]any, error) {
		return moveRow(lines[i]), nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy stock moves: %w", err)
	}
	if n != int64(len(lines)) {
		return 0, fmt.Errorf("copy stock moves: wrote %d of %d rows", n, len(lines))
	}
	return n, nil
}

// moveRow lays out l in moveColumns order. The move date doubles as the
// record's create and write date; a line without one is dated now.
func moveRow(l core.MovementLine) []any {
	date := l.Date
	if date.IsZero() {
		date = time.Now()
	}
	stamp := toPgTimestamp(date)
	return []any{
		l.PickingID,
		l.PickingTypeID,
		l.CompanyID,
		l.ProductID,
		l.UnitID,
		l.Name,
		toPgText(l.Description),
		toPgNumeric(l.Quantity),
		toPgInt8(l.SourceLocationID),
		l.DestLocationID,
		l.State,
		int32(l.Row + 1),
		l.ProcureMethod,
		stamp,
		stamp,
		stamp,
	}
}
