package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by lookups and the file decoder.
var (
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous match")
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyFile    = errors.New("empty file")
	ErrNoDataRows   = errors.New("no data rows after header")
	ErrNoHeader     = errors.New("no header row")
	ErrUnsupported  = errors.New("unsupported file format")
)

// DecodeError means the upload could not be decoded or parsed as a spreadsheet.
type DecodeError struct {
	FileName string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("decode spreadsheet: %v", e.Err)
	}
	return fmt.Sprintf("decode spreadsheet %q: %v", e.FileName, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MissingColumnError lists the required columns absent from the header row.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// UnresolvedProductError means no product has the row's code.
type UnresolvedProductError struct {
	Row  int
	Line int
	Code string
}

func (e *UnresolvedProductError) Error() string {
	return fmt.Sprintf("row %d (line %d): no product with code %q", e.Row, e.Line, e.Code)
}

func (e *UnresolvedProductError) rowInfo() (int, int, string) { return e.Row, e.Line, e.Code }

// AmbiguousProductError means several products share the row's code.
type AmbiguousProductError struct {
	Row  int
	Line int
	Code string
}

func (e *AmbiguousProductError) Error() string {
	return fmt.Sprintf("row %d (line %d): several products with code %q", e.Row, e.Line, e.Code)
}

func (e *AmbiguousProductError) rowInfo() (int, int, string) { return e.Row, e.Line, e.Code }

// UnresolvedUnitError means no unit of measure has the row's name.
type UnresolvedUnitError struct {
	Row  int
	Line int
	Name string
}

func (e *UnresolvedUnitError) Error() string {
	return fmt.Sprintf("row %d (line %d): no unit of measure named %q", e.Row, e.Line, e.Name)
}

func (e *UnresolvedUnitError) rowInfo() (int, int, string) { return e.Row, e.Line, e.Name }

// AmbiguousUnitError means several units share the row's name.
type AmbiguousUnitError struct {
	Row  int
	Line int
	Name string
}

func (e *AmbiguousUnitError) Error() string {
	return fmt.Sprintf("row %d (line %d): several units of measure named %q", e.Row, e.Line, e.Name)
}

func (e *AmbiguousUnitError) rowInfo() (int, int, string) { return e.Row, e.Line, e.Name }

// InvalidQuantityError means the quantity cell is empty or not a number.
type InvalidQuantityError struct {
	Row   int
	Line  int
	Value string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("row %d (line %d): invalid quantity %q", e.Row, e.Line, e.Value)
}

func (e *InvalidQuantityError) rowInfo() (int, int, string) { return e.Row, e.Line, e.Value }

// PickingNotFoundError means the target picking does not exist.
type PickingNotFoundError struct {
	PickingID int64
}

func (e *PickingNotFoundError) Error() string {
	return fmt.Sprintf("picking %d not found", e.PickingID)
}

// PickingLockedError means the picking is done or cancelled.
type PickingLockedError struct {
	PickingID int64
	State     string
}

func (e *PickingLockedError) Error() string {
	return fmt.Sprintf("picking %d is %s and accepts no new moves", e.PickingID, e.State)
}

type rowError interface {
	error
	rowInfo() (row, line int, value string)
}

// RowDetails extracts the row index, sheet line and offending value from a
// row-level import error anywhere in err's chain.
func RowDetails(err error) (row, line int, value string, ok bool) {
	var re rowError
	if errors.As(err, &re) {
		row, line, value = re.rowInfo()
		return row, line, value, true
	}
	return 0, 0, "", false
}
