package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeCatalog is an in-memory product and unit catalogue that records calls.
type fakeCatalog struct {
	mu           sync.Mutex
	products     map[string][]ProductRef
	units        map[string][]UnitRef
	productCalls []string
	unitCalls    []string
	err          error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string][]ProductRef{
			"ABC123": {{ID: 101, Code: "ABC123", Name: "Steel Bolt"}},
			"XYZ9":   {{ID: 102, Code: "XYZ9", Name: "Sand"}},
			"DUP1":   {{ID: 201, Code: "DUP1", Name: "One"}, {ID: 202, Code: "DUP1", Name: "Two"}},
		},
		units: map[string][]UnitRef{
			"pcs": {{ID: 1, Name: "pcs"}},
			"kg":  {{ID: 2, Name: "kg"}},
			"box": {{ID: 3, Name: "box"}, {ID: 4, Name: "box"}},
		},
	}
}

func (f *fakeCatalog) ProductByCode(_ context.Context, code string) (ProductRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls = append(f.productCalls, code)
	if f.err != nil {
		return ProductRef{}, f.err
	}
	switch m := f.products[code]; len(m) {
	case 0:
		return ProductRef{}, ErrNotFound
	case 1:
		return m[0], nil
	default:
		return ProductRef{}, ErrAmbiguous
	}
}

func (f *fakeCatalog) UnitByName(_ context.Context, name string) (UnitRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitCalls = append(f.unitCalls, name)
	if f.err != nil {
		return UnitRef{}, f.err
	}
	switch m := f.units[name]; len(m) {
	case 0:
		return UnitRef{}, ErrNotFound
	case 1:
		return m[0], nil
	default:
		return UnitRef{}, ErrAmbiguous
	}
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.productCalls) + len(f.unitCalls)
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	*fakeCatalog

	pickings map[int64]Picking
	saveErr  error
	logErr   error
	pingErr  error

	saved   [][]MovementLine
	records []ImportRecord
	purged  []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fakeCatalog: newFakeCatalog(),
		pickings: map[int64]Picking{
			7:  {ID: 7, Name: "WH/OUT/00007", State: "assigned", PickingTypeID: 2, SourceLocationID: 8, CompanyID: 1},
			8:  {ID: 8, Name: "WH/OUT/00008", State: PickingStateDone, PickingTypeID: 2, SourceLocationID: 8},
			9:  {ID: 9, Name: "WH/OUT/00009", State: PickingStateCancel, PickingTypeID: 2},
			10: {ID: 10, Name: "WH/INT/00010", State: StateDraft, PickingTypeID: 5},
		},
	}
}

func (s *fakeStore) PickingByID(_ context.Context, id int64) (Picking, error) {
	p, ok := s.pickings[id]
	if !ok {
		return Picking{}, ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) SaveMoves(_ context.Context, lines []MovementLine) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.saved = append(s.saved, lines)
	return int64(len(lines)), nil
}

func (s *fakeStore) RecordImport(_ context.Context, rec ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) ListImports(_ context.Context, pickingID int64, limit int) ([]ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ImportRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].PickingID == pickingID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *fakeStore) PurgeImports(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, before)
	var kept []ImportRecord
	for _, r := range s.records {
		if !r.CreatedAt.Before(before) {
			kept = append(kept, r)
		}
	}
	n := int64(len(s.records) - len(kept))
	s.records = kept
	return n, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

// csvFile builds a CSV upload from lines joined with newlines.
func csvFile(lines ...string) UploadedFile {
	return UploadedFile{Name: "lines.csv", Data: []byte(strings.Join(lines, "\n") + "\n")}
}

// xlsxFile builds a one-sheet workbook upload; rows[0] is written to line 1.
func xlsxFile(t testing.TB, rows ...[]any) UploadedFile {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", start, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return UploadedFile{Name: "lines.xlsx", Data: buf.Bytes()}
}

func openPicking() Picking {
	return Picking{ID: 7, Name: "WH/OUT/00007", State: "assigned", PickingTypeID: 2, SourceLocationID: 8, CompanyID: 3}
}

func qtyStrings(lines []MovementLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Quantity.String()
	}
	return out
}

func mustFile(t *testing.T, name, payload string) UploadedFile {
	t.Helper()
	f, err := DecodeBase64(name, payload)
	require.NoError(t, err, fmt.Sprintf("decode %s", name))
	return f
}
