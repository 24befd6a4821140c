package core

// sheet.go decodes uploads into a header row and data rows.
//
// XLSX goes through excelize (first sheet, raw cell values so quantities are
// not reformatted by the cell's number format). CSV goes through encoding/csv
// with the same lenient settings used for hand-edited exports.

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize applies when ReadSheet is called with maxSize <= 0.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// TemplateFileName is the suggested download name for Template.
const TemplateFileName = "siirtorivit.xlsx"

const templateSheet = "Rivit"

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Sheet is a decoded spreadsheet. Rows[i] sits on sheet line HeaderLine+1+i.
type Sheet struct {
	Header     []string
	HeaderLine int
	Rows       [][]string
}

// DecodeBase64 unwraps a base64 transport envelope. Whitespace and line
// breaks inside the payload are ignored, as are data-URL prefixes.
func DecodeBase64(name, payload string) (UploadedFile, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)

	if payload == "" {
		return UploadedFile{}, &DecodeError{FileName: name, Err: ErrEmptyFile}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients strip padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return UploadedFile{}, &DecodeError{FileName: name, Err: fmt.Errorf("invalid base64: %w", err)}
		}
	}

	return UploadedFile{Name: name, Data: data}, nil
}

// ReadSheet parses the first sheet of file. The header is the first non-blank
// row; everything below it is data, blank rows included.
func ReadSheet(file UploadedFile, maxSize int64) (*Sheet, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if len(file.Data) == 0 {
		return nil, &DecodeError{FileName: file.Name, Err: ErrEmptyFile}
	}
	if int64(len(file.Data)) > maxSize {
		return nil, &DecodeError{
			FileName: file.Name,
			Err:      fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrFileTooLarge, len(file.Data), maxSize),
		}
	}

	var (
		records [][]string
		err     error
	)
	switch detectFormat(file) {
	case formatCSV:
		records, err = parseCSV(file.Data)
	case formatXLSX:
		records, err = parseXLSX(file.Data)
	default:
		err = fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx or .csv", ErrUnsupported)
	}
	if err != nil {
		return nil, &DecodeError{FileName: file.Name, Err: err}
	}

	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &DecodeError{FileName: file.Name, Err: ErrNoHeader}
	}

	sheet := &Sheet{
		Header:     records[headerAt],
		HeaderLine: headerAt + 1,
		Rows:       trimTrailingBlank(records[headerAt+1:]),
	}
	return sheet, nil
}

type fileFormat int

const (
	formatXLSX fileFormat = iota
	formatCSV
	formatXLS
)

// detectFormat sniffs content first and falls back to the extension.
func detectFormat(file UploadedFile) fileFormat {
	switch {
	case bytes.HasPrefix(file.Data, zipMagic):
		return formatXLSX
	case bytes.HasPrefix(file.Data, oleMagic):
		return formatXLS
	}

	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".xlsx", ".xlsm":
		return formatXLSX
	case ".xls":
		return formatXLS
	}
	return formatCSV
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(sanitizeUTF8(data), utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// sniffDelimiter picks ';' when the first line has more semicolons than commas.
// Nordic Excel exports CSV with ';' because ',' is the decimal separator.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func trimTrailingBlank(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

// Template builds an .xlsx with the required header row and one sample line.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	sample := []any{"ABC123", 10, "pcs"}
	for i, col := range RequiredColumns {
		head, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(templateSheet, head, col); err != nil {
			return nil, fmt.Errorf("set header %s: %w", col, err)
		}
		if err := f.SetCellStyle(templateSheet, head, head, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", col, err)
		}
		body, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(templateSheet, body, sample[i]); err != nil {
			return nil, fmt.Errorf("set sample %s: %w", col, err)
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(templateSheet, colName, colName, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
