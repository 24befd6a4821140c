package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Column names the spreadsheet producer must use. Matching is case-insensitive.
const (
	ColumnProductCode = "tuotekoodi"
	ColumnQuantity    = "maara"
	ColumnUnit        = "yksikko"
)

// RequiredColumns lists the header cells every import needs, in template order.
var RequiredColumns = []string{ColumnProductCode, ColumnQuantity, ColumnUnit}

// StateDraft is the state of every generated move.
const StateDraft = "draft"

// Picking states that no longer accept new moves.
const (
	PickingStateDone   = "done"
	PickingStateCancel = "cancel"
)

// UploadedFile is the raw upload. It lives for one import call only.
type UploadedFile struct {
	Name string
	Data []byte
}

// SheetRow is one data row read from the spreadsheet. The quantity is kept
// as text and parsed when the row is resolved.
type SheetRow struct {
	Index       int // 0-based position among data rows
	Line        int // 1-based line in the sheet
	ProductCode string
	Quantity    string
	UnitName    string
}

// ProductRef is a product resolved by its default code.
type ProductRef struct {
	ID   int64
	Code string
	Name string
}

// UnitRef is a unit of measure resolved by its name.
type UnitRef struct {
	ID   int64
	Name string
}

// Picking is the shipment or transfer that receives the generated moves.
type Picking struct {
	ID               int64
	Name             string
	State            string
	PickingTypeID    int64
	SourceLocationID int64 // 0 if unset
	CompanyID        int64 // 0 if unset
}

// AcceptsLines reports whether new moves may be appended to the picking.
func (p Picking) AcceptsLines() bool {
	return p.State != PickingStateDone && p.State != PickingStateCancel
}

// MovementLine is a stock move creation request built from one sheet row.
type MovementLine struct {
	PickingID        int64           `json:"pickingId"`
	PickingTypeID    int64           `json:"pickingTypeId"`
	CompanyID        int64           `json:"companyId"`
	ProductID        int64           `json:"productId"`
	UnitID           int64           `json:"unitId"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	SourceLocationID int64           `json:"sourceLocationId"`
	DestLocationID   int64           `json:"destLocationId"`
	State            string          `json:"state"`
	ProcureMethod    string          `json:"procureMethod"`
	Date             time.Time       `json:"date"`
	Row              int             `json:"row"`
}

// ProductLookup resolves a product by exact default code.
// Implementations return ErrNotFound or ErrAmbiguous for zero or several matches.
type ProductLookup interface {
	ProductByCode(ctx context.Context, code string) (ProductRef, error)
}

// UnitLookup resolves a unit of measure by exact name.
// Implementations return ErrNotFound or ErrAmbiguous for zero or several matches.
type UnitLookup interface {
	UnitByName(ctx context.Context, name string) (UnitRef, error)
}

// ProductLookupFunc adapts a function to ProductLookup.
type ProductLookupFunc func(ctx context.Context, code string) (ProductRef, error)

// ProductByCode calls f.
func (f ProductLookupFunc) ProductByCode(ctx context.Context, code string) (ProductRef, error) {
	return f(ctx, code)
}

// UnitLookupFunc adapts a function to UnitLookup.
type UnitLookupFunc func(ctx context.Context, name string) (UnitRef, error)

// UnitByName calls f.
func (f UnitLookupFunc) UnitByName(ctx context.Context, name string) (UnitRef, error) {
	return f(ctx, name)
}

// ImportResult is what a finished (or dry-run) import reports back.
type ImportResult struct {
	ImportID    string         `json:"importId"`
	PickingID   int64          `json:"pickingId"`
	PickingName string         `json:"pickingName"`
	FileName    string         `json:"fileName"`
	Lines       []MovementLine `json:"lines"`
	Inserted    int64          `json:"inserted"`
	DryRun      bool           `json:"dryRun"`
	Duration    time.Duration  `json:"durationNs"`
}
