package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(im *Importer, t time.Time) *Importer {
	im.now = func() time.Time { return t }
	return im
}

func TestImport_TwoRowsInOrder(t *testing.T) {
	cat := newFakeCatalog()
	stamp := time.Date(2026, 5, 4, 9, 30, 0, 0, time.FixedZone("EEST", 3*60*60))
	im := fixedClock(NewImporter(ImporterConfig{}), stamp)

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,10,pcs", "XYZ9,3,kg"),
		openPicking(), cat, cat)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, []string{"10", "3"}, qtyStrings(lines))
	assert.Equal(t, int64(101), lines[0].ProductID)
	assert.Equal(t, int64(102), lines[1].ProductID)
	assert.Equal(t, int64(1), lines[0].UnitID)
	assert.Equal(t, int64(2), lines[1].UnitID)
	assert.Equal(t, "[ABC123] Steel Bolt", lines[0].Name)
	assert.Equal(t, "[XYZ9] Sand", lines[1].Name)

	for i, l := range lines {
		assert.Equal(t, StateDraft, l.State)
		assert.Equal(t, int64(7), l.PickingID)
		assert.Equal(t, int64(2), l.PickingTypeID)
		assert.Equal(t, int64(8), l.SourceLocationID)
		assert.Equal(t, DefaultDestLocationID, l.DestLocationID)
		assert.Equal(t, int64(3), l.CompanyID)
		assert.Equal(t, DefaultMoveDescription, l.Description)
		assert.Equal(t, DefaultProcureMethod, l.ProcureMethod)
		assert.True(t, stamp.Equal(l.Date))
		assert.Equal(t, time.UTC, l.Date.Location())
		assert.Equal(t, i, l.Row)
	}
}

func TestMoveLabel(t *testing.T) {
	assert.Equal(t, "[ABC123] Steel Bolt", MoveLabel("ABC123", "Steel Bolt"))
	assert.Equal(t, "[] Nameless", MoveLabel("", "Nameless"))
}

func TestImport_UnknownProduct(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "UNKNOWN,5,pcs"),
		openPicking(), cat, cat)

	assert.Nil(t, lines)
	var target *UnresolvedProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 0, target.Row)
	assert.Equal(t, 2, target.Line)
	assert.Equal(t, "UNKNOWN", target.Code)
	assert.Empty(t, cat.unitCalls, "unit must not be looked up for an unresolved product")
}

func TestImport_UnknownProductOnLaterRowReturnsNothing(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", "XYZ9,2,kg", "NOPE,3,pcs"),
		openPicking(), cat, cat)

	assert.Nil(t, lines)
	var target *UnresolvedProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 2, target.Row)
	assert.Equal(t, "NOPE", target.Code)
}

func TestImport_UnknownUnit(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", "XYZ9,2,litre"),
		openPicking(), cat, cat)

	assert.Nil(t, lines)
	var target *UnresolvedUnitError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 1, target.Row)
	assert.Equal(t, 3, target.Line)
	assert.Equal(t, "litre", target.Name)
}

func TestImport_MissingColumnsBeforeLookup(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,qty,unit", "ABC123,1,pcs"),
		openPicking(), cat, cat)

	var target *MissingColumnError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, []string{"maara", "yksikko"}, target.Columns)
	assert.Zero(t, cat.calls())
}

func TestImport_HeadersCaseInsensitiveAndReordered(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile(" YKSIKKO ,note,Tuotekoodi,MAARA", "kg,first,XYZ9,4"),
		openPicking(), cat, cat)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(102), lines[0].ProductID)
	assert.Equal(t, int64(2), lines[0].UnitID)
	assert.Equal(t, "4", lines[0].Quantity.String())
}

func TestImport_QuantityVerbatim(t *testing.T) {
	tests := []struct {
		cell string
		want string
	}{
		{"10", "10"},
		{"2.125", "2.125"},
		{"0.001", "0.001"},
		{"12.3456789", "12.3456789"},
		{"2,5", "2.5"},
		{"-4", "-4"},
	}

	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			lines, err := im.Import(context.Background(),
				csvFile("tuotekoodi;maara;yksikko", "ABC123;"+tt.cell+";pcs"),
				openPicking(), cat, cat)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(lines[0].Quantity),
				"quantity = %s, want %s", lines[0].Quantity, tt.want)
			assert.Equal(t, tt.want, lines[0].Quantity.String())
		})
	}
}

func TestImport_InvalidQuantity(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", "XYZ9,lots,kg"),
		openPicking(), cat, cat)

	var target *InvalidQuantityError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 1, target.Row)
	assert.Equal(t, "lots", target.Value)
	assert.Equal(t, []string{"ABC123"}, cat.productCalls, "the failing row is not looked up")
}

func TestImport_ErrorsReportedInFileOrder(t *testing.T) {
	tests := []struct {
		name    string
		rows    []string
		wantRow int
		check   func(t *testing.T, err error)
	}{
		{
			name:    "unknown product before bad quantity",
			rows:    []string{"UNKNOWN,5,pcs", "ABC123,abc,pcs"},
			wantRow: 0,
			check: func(t *testing.T, err error) {
				var target *UnresolvedProductError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "UNKNOWN", target.Code)
			},
		},
		{
			name:    "unknown unit before bad quantity",
			rows:    []string{"ABC123,5,litre", "XYZ9,,kg"},
			wantRow: 0,
			check: func(t *testing.T, err error) {
				var target *UnresolvedUnitError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "litre", target.Name)
			},
		},
		{
			name:    "bad quantity before unknown product",
			rows:    []string{"ABC123,abc,pcs", "UNKNOWN,5,pcs"},
			wantRow: 0,
			check: func(t *testing.T, err error) {
				var target *InvalidQuantityError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "abc", target.Value)
			},
		},
		{
			name:    "bad quantity skips its own lookups",
			rows:    []string{"ABC123,1,pcs", "UNKNOWN,abc,pcs"},
			wantRow: 1,
			check: func(t *testing.T, err error) {
				var target *InvalidQuantityError
				require.ErrorAs(t, err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newFakeCatalog()
			im := NewImporter(ImporterConfig{})

			lines, err := im.Import(context.Background(),
				csvFile(append([]string{"tuotekoodi,maara,yksikko"}, tt.rows...)...),
				openPicking(), cat, cat)

			assert.Nil(t, lines)
			tt.check(t, err)
			row, line, _, ok := RowDetails(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantRow, row)
			assert.Equal(t, tt.wantRow+2, line)
		})
	}
}

func TestImport_QuantityOutOfRange(t *testing.T) {
	tests := []string{
		"1e999999999",
		"1e-999999999",
		"0e999999999",
		"1234567890123456",
		"1e16",
	}

	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	for _, cellValue := range tests {
		t.Run(cellValue, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := im.Import(context.Background(),
					csvFile("tuotekoodi,maara,yksikko", "ABC123,"+cellValue+",pcs"),
					openPicking(), cat, cat)
				done <- err
			}()

			select {
			case err := <-done:
				var target *InvalidQuantityError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, cellValue, target.Value)
			case <-time.After(5 * time.Second):
				t.Fatalf("import of %q did not return", cellValue)
			}
		})
	}
}

func TestImport_CodesAndUnitsMatchedVerbatim(t *testing.T) {
	cat := newFakeCatalog()
	cat.products["'X1'"] = []ProductRef{{ID: 301, Code: "'X1'", Name: "Quoted"}}
	cat.units["=kpl"] = []UnitRef{{ID: 9, Name: "=kpl"}}
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi;maara;yksikko", "\u00a0'X1' ;2;=kpl"),
		openPicking(), cat, cat)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, []string{"'X1'"}, cat.productCalls)
	assert.Equal(t, []string{"=kpl"}, cat.unitCalls)
	assert.Equal(t, int64(301), lines[0].ProductID)
	assert.Equal(t, int64(9), lines[0].UnitID)
	assert.Equal(t, "['X1'] Quoted", lines[0].Name)
}

func TestImport_QuotedCodeNotStripped(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi;maara;yksikko", "'ABC123';1;pcs"),
		openPicking(), cat, cat)

	var target *UnresolvedProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "'ABC123'", target.Code)
}

func TestImport_EmptyQuantity(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,,pcs"),
		openPicking(), cat, cat)

	var target *InvalidQuantityError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "", target.Value)
}

func TestImport_AmbiguousProduct(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "DUP1,1,pcs"),
		openPicking(), cat, cat)

	var target *AmbiguousProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "DUP1", target.Code)
	assert.Equal(t, 0, target.Row)
}

func TestImport_AmbiguousUnit(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,box"),
		openPicking(), cat, cat)

	var target *AmbiguousUnitError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "box", target.Name)
}

func TestImport_EmptyProductCodeIsUnresolved(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", ",1,pcs"),
		openPicking(), cat, cat)

	var target *UnresolvedProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "", target.Code)
	assert.Empty(t, cat.productCalls)
}

func TestImport_LookupFailureIsNotUnresolved(t *testing.T) {
	boom := errors.New("connection reset by peer")
	cat := newFakeCatalog()
	cat.err = boom
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs"),
		openPicking(), cat, cat)

	assert.Nil(t, lines)
	require.ErrorIs(t, err, boom)
	var unresolved *UnresolvedProductError
	assert.False(t, errors.As(err, &unresolved))
	assert.Len(t, cat.productCalls, 1, "lookups are not retried")
}

func TestImport_LookupsMemoised(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", "ABC123,2,pcs", "XYZ9,3,pcs", "ABC123,4,kg"),
		openPicking(), cat, cat)
	require.NoError(t, err)
	assert.Len(t, lines, 4)
	assert.Equal(t, []string{"ABC123", "XYZ9"}, cat.productCalls)
	assert.Equal(t, []string{"pcs", "kg"}, cat.unitCalls)
}

func TestImport_BlankRowsSkippedButCounted(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", ",,", "XYZ9,2,kg", "", ""),
		openPicking(), cat, cat)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 0, lines[0].Row)
	assert.Equal(t, 2, lines[1].Row)
}

func TestImport_HeaderOnly(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko"),
		openPicking(), cat, cat)

	var target *DecodeError
	require.ErrorAs(t, err, &target)
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestImport_ConfiguredLocations(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{
		SourceLocationID: 12,
		DestLocationID:   9,
		CompanyID:        4,
		Description:      "Siirto",
		ProcureMethod:    "make_to_order",
	})

	picking := Picking{ID: 10, Name: "WH/INT/00010", State: StateDraft, PickingTypeID: 5}
	lines, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs"),
		picking, cat, cat)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, int64(12), lines[0].SourceLocationID, "falls back to configured source")
	assert.Equal(t, int64(9), lines[0].DestLocationID)
	assert.Equal(t, int64(4), lines[0].CompanyID, "falls back to configured company")
	assert.Equal(t, "Siirto", lines[0].Description)
	assert.Equal(t, "make_to_order", lines[0].ProcureMethod)
	assert.Equal(t, int64(5), lines[0].PickingTypeID)
}

func TestImport_XLSXMatchesCSV(t *testing.T) {
	cat := newFakeCatalog()
	im := fixedClock(NewImporter(ImporterConfig{}), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	fromCSV, err := im.Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "ABC123,10,pcs", "XYZ9,2.5,kg"),
		openPicking(), cat, cat)
	require.NoError(t, err)

	fromXLSX, err := im.Import(context.Background(),
		xlsxFile(t,
			[]any{"tuotekoodi", "maara", "yksikko"},
			[]any{"ABC123", 10, "pcs"},
			[]any{"XYZ9", 2.5, "kg"},
		),
		openPicking(), cat, cat)
	require.NoError(t, err)

	require.Len(t, fromXLSX, len(fromCSV))
	for i := range fromCSV {
		assert.True(t, fromCSV[i].Quantity.Equal(fromXLSX[i].Quantity))
		fromXLSX[i].Quantity = fromCSV[i].Quantity
	}
	assert.Equal(t, fromCSV, fromXLSX)
}

func TestImport_XLSXBlankRowKeepsLineNumbers(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	_, err := im.Import(context.Background(),
		xlsxFile(t,
			[]any{"tuotekoodi", "maara", "yksikko"},
			[]any{"ABC123", 1, "pcs"},
			nil,
			[]any{"MISSING", 1, "pcs"},
		),
		openPicking(), cat, cat)

	var target *UnresolvedProductError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 2, target.Row)
	assert.Equal(t, 4, target.Line)
}

func TestImport_CancelledContext(t *testing.T) {
	cat := newFakeCatalog()
	im := NewImporter(ImporterConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines, err := im.Import(ctx,
		csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs"),
		openPicking(), cat, cat)
	assert.Nil(t, lines)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cat.calls())
}

func TestImport_LookupFuncAdapters(t *testing.T) {
	products := ProductLookupFunc(func(_ context.Context, code string) (ProductRef, error) {
		return ProductRef{ID: 1, Code: code, Name: "Widget"}, nil
	})
	units := UnitLookupFunc(func(_ context.Context, name string) (UnitRef, error) {
		return UnitRef{ID: 2, Name: name}, nil
	})

	lines, err := NewImporter(ImporterConfig{}).Import(context.Background(),
		csvFile("tuotekoodi,maara,yksikko", "W-1,1,pcs"),
		openPicking(), products, units)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "[W-1] Widget", lines[0].Name)
	assert.Equal(t, int64(2), lines[0].UnitID)
}

func TestNewImporter_Defaults(t *testing.T) {
	cfg := NewImporter(ImporterConfig{}).Config()
	assert.Equal(t, DefaultDestLocationID, cfg.DestLocationID)
	assert.Equal(t, DefaultCompanyID, cfg.CompanyID)
	assert.Equal(t, DefaultMoveDescription, cfg.Description)
	assert.Equal(t, DefaultProcureMethod, cfg.ProcureMethod)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Zero(t, cfg.SourceLocationID)
}
