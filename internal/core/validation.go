package core

// validation.go checks the header row before any row is processed.
//
// The three required columns are a fixed contract with whoever produces the
// spreadsheet. Extra columns are ignored; every missing column is reported at
// once so the operator can fix the file in one pass.

import "strings"

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// ColumnPositions holds the position of each required column.
type ColumnPositions struct {
	ProductCode int
	Quantity    int
	Unit        int
}

// ValidateHeaders checks that every required column exists in the header.
// Returns the column positions, or a *MissingColumnError listing all missing
// columns in template order.
func ValidateHeaders(header []string) (ColumnPositions, error) {
	idx := MakeHeaderIndex(header)

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return ColumnPositions{}, &MissingColumnError{Columns: missing}
	}

	return ColumnPositions{
		ProductCode: idx[ColumnProductCode],
		Quantity:    idx[ColumnQuantity],
		Unit:        idx[ColumnUnit],
	}, nil
}
