package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied by NewImporter when the config leaves them zero.
const (
	DefaultDestLocationID  int64 = 5
	DefaultCompanyID       int64 = 1
	DefaultMoveDescription       = "Excel-tiedoston siirto"
	DefaultProcureMethod         = "make_to_stock"
)

// ImporterConfig carries the ids the host database does not supply per picking.
type ImporterConfig struct {
	SourceLocationID int64 // used when the picking has no source location
	DestLocationID   int64
	CompanyID        int64 // used when the picking has no company
	Description      string
	ProcureMethod    string
	MaxFileSize      int64
}

// Importer turns a spreadsheet into movement lines for one picking.
// It keeps no state between calls and is safe for concurrent use.
type Importer struct {
	cfg ImporterConfig
	now func() time.Time
}

// NewImporter creates an Importer, filling zero config fields with defaults.
func NewImporter(cfg ImporterConfig) *Importer {
	if cfg.DestLocationID == 0 {
		cfg.DestLocationID = DefaultDestLocationID
	}
	if cfg.CompanyID == 0 {
		cfg.CompanyID = DefaultCompanyID
	}
	if cfg.Description == "" {
		cfg.Description = DefaultMoveDescription
	}
	if cfg.ProcureMethod == "" {
		cfg.ProcureMethod = DefaultProcureMethod
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Importer{cfg: cfg, now: time.Now}
}

// Config returns the configuration with defaults applied.
func (im *Importer) Config() ImporterConfig {
	return im.cfg
}

// Import decodes file and builds one MovementLine per data row, in file order.
//
// Rows are checked in file order: quantity, then product, then unit. The
// call is all-or-nothing: the first failing row aborts it and nil is
// returned with the error. Header problems are reported before any lookup.
// Lookups are not retried; each distinct code and unit name is queried once.
func (im *Importer) Import(ctx context.Context, file UploadedFile, target Picking, products ProductLookup, units UnitLookup) ([]MovementLine, error) {
	sheet, err := ReadSheet(file, im.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	rows, err := ParseRows(sheet)
	if err != nil {
		if errors.Is(err, ErrNoDataRows) {
			return nil, &DecodeError{FileName: file.Name, Err: err}
		}
		return nil, err
	}

	res := newResolver(products, units)
	lines := make([]MovementLine, 0, len(rows))
	date := im.now().UTC()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		qty, err := ParseQuantity(row.Quantity)
		if err != nil {
			return nil, &InvalidQuantityError{Row: row.Index, Line: row.Line, Value: row.Quantity}
		}
		product, err := res.product(ctx, row)
		if err != nil {
			return nil, err
		}
		unit, err := res.unit(ctx, row)
		if err != nil {
			return nil, err
		}

		line := im.buildLine(target, row, product, unit, qty)
		line.Date = date
		lines = append(lines, line)
	}

	return lines, nil
}

func (im *Importer) buildLine(target Picking, row SheetRow, product ProductRef, unit UnitRef, qty decimal.Decimal) MovementLine {
	source := target.SourceLocationID
	if source == 0 {
		source = im.cfg.SourceLocationID
	}
	company := target.CompanyID
	if company == 0 {
		company = im.cfg.CompanyID
	}

	return MovementLine{
		PickingID:        target.ID,
		PickingTypeID:    target.PickingTypeID,
		CompanyID:        company,
		ProductID:        product.ID,
		UnitID:           unit.ID,
		Name:             MoveLabel(row.ProductCode, product.Name),
		Description:      im.cfg.Description,
		Quantity:         qty,
		SourceLocationID: source,
		DestLocationID:   im.cfg.DestLocationID,
		State:            StateDraft,
		ProcureMethod:    im.cfg.ProcureMethod,
		Row:              row.Index,
	}
}

// MoveLabel formats the move name shown in the picking: "[code] product name".
func MoveLabel(code, productName string) string {
	return fmt.Sprintf("[%s] %s", code, productName)
}

// ParseRows validates the header and picks the three columns out of every
// non-blank data row. Blank rows are skipped but keep their index so row
// numbers match the file.
func ParseRows(sheet *Sheet) ([]SheetRow, error) {
	cols, err := ValidateHeaders(sheet.Header)
	if err != nil {
		return nil, err
	}

	rows := make([]SheetRow, 0, len(sheet.Rows))
	for i, rec := range sheet.Rows {
		if isEmptyRow(rec) {
			continue
		}
		rows = append(rows, SheetRow{
			Index:       i,
			Line:        sheet.HeaderLine + 1 + i,
			ProductCode: cell(rec, cols.ProductCode),
			Quantity:    cell(rec, cols.Quantity),
			UnitName:    cell(rec, cols.Unit),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return rows, nil
}

// resolver memoises lookups for the duration of one import.
type resolver struct {
	products     ProductLookup
	units        UnitLookup
	productCache map[string]ProductRef
	unitCache    map[string]UnitRef
}

func newResolver(products ProductLookup, units UnitLookup) *resolver {
	return &resolver{
		products:     products,
		units:        units,
		productCache: make(map[string]ProductRef),
		unitCache:    make(map[string]UnitRef),
	}
}

func (r *resolver) product(ctx context.Context, row SheetRow) (ProductRef, error) {
	if p, ok := r.productCache[row.ProductCode]; ok {
		return p, nil
	}
	if row.ProductCode == "" {
		return ProductRef{}, &UnresolvedProductError{Row: row.Index, Line: row.Line, Code: row.ProductCode}
	}

	p, err := r.products.ProductByCode(ctx, row.ProductCode)
	switch {
	case errors.Is(err, ErrNotFound):
		return ProductRef{}, &UnresolvedProductError{Row: row.Index, Line: row.Line, Code: row.ProductCode}
	case errors.Is(err, ErrAmbiguous):
		return ProductRef{}, &AmbiguousProductError{Row: row.Index, Line: row.Line, Code: row.ProductCode}
	case err != nil:
		return ProductRef{}, fmt.Errorf("look up product %q (line %d): %w", row.ProductCode, row.Line, err)
	}

	r.productCache[row.ProductCode] = p
	return p, nil
}

func (r *resolver) unit(ctx context.Context, row SheetRow) (UnitRef, error) {
	if u, ok := r.unitCache[row.UnitName]; ok {
		return u, nil
	}
	if row.UnitName == "" {
		return UnitRef{}, &UnresolvedUnitError{Row: row.Index, Line: row.Line, Name: row.UnitName}
	}

	u, err := r.units.UnitByName(ctx, row.UnitName)
	switch {
	case errors.Is(err, ErrNotFound):
		return UnitRef{}, &UnresolvedUnitError{Row: row.Index, Line: row.Line, Name: row.UnitName}
	case errors.Is(err, ErrAmbiguous):
		return UnitRef{}, &AmbiguousUnitError{Row: row.Index, Line: row.Line, Name: row.UnitName}
	case err != nil:
		return UnitRef{}, fmt.Errorf("look up unit %q (line %d): %w", row.UnitName, row.Line, err)
	}

	r.unitCache[row.UnitName] = u
	return u, nil
}
