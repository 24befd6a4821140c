package core

// convert.go cleans spreadsheet cells and parses quantities.
//
// Sheets come from Excel, LibreOffice and hand-edited CSV exports, so cells
// may carry formula prefixes (="ABC"), stray quotes, non-breaking spaces,
// thousands separators or a decimal comma.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// quantityRegex accepts integers, decimals and scientific notation after cleanup.
var quantityRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Quantity bounds. Anything wider is a typo, and formatting a decimal with a
// huge exponent expands every digit.
const (
	MaxQuantityIntDigits = 15  // digits before the decimal point
	MaxQuantityScale     = 100 // digits after the decimal point
)

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching. The first occurrence of
// a duplicated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace, including non-breaking spaces
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// ParseQuantity parses a quantity cell into a decimal without rounding.
//
// A comma is read as the decimal separator when the cell has no dot ("2,5").
// Spaces are dropped ("1 000"). When both separators appear the comma is a
// thousands separator ("1,000.25").
func ParseQuantity(s string) (decimal.Decimal, error) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty quantity")
	}

	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}

	if !quantityRegex.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q", s)
	}
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := checkQuantityRange(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// checkQuantityRange rejects values outside the quantity bounds. It only
// inspects the exponent and coefficient, never the expanded value.
func checkQuantityRange(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp < -MaxQuantityScale {
		return fmt.Errorf("more than %d decimal places", MaxQuantityScale)
	}
	if exp > MaxQuantityIntDigits {
		return fmt.Errorf("more than %d integer digits", MaxQuantityIntDigits)
	}

	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return nil
	}
	if intDigits := int64(len(coef.Abs(coef).String())) + exp; intDigits > MaxQuantityIntDigits {
		return fmt.Errorf("more than %d integer digits", MaxQuantityIntDigits)
	}
	return nil
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// TrimCell trims whitespace, including non-breaking spaces, and nothing else.
// Codes and unit names are matched exactly, so quotes and a leading "=" stay.
func TrimCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// cell returns the trimmed value at pos, or "" when the row is short.
// Spreadsheet readers drop trailing empty cells, so short rows are normal.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return TrimCell(row[pos])
}
