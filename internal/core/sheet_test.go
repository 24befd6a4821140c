package core

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64(t *testing.T) {
	raw := []byte("tuotekoodi,maara,yksikko\nABC123,1,pcs\n")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
	}{
		{"plain", enc},
		{"wrapped lines", enc[:10] + "\n" + enc[10:20] + "\r\n  " + enc[20:]},
		{"data url", "data:text/csv;base64," + enc},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeBase64("lines.csv", tt.payload)
			require.NoError(t, err)
			assert.Equal(t, "lines.csv", f.Name)
			assert.Equal(t, raw, f.Data)
		})
	}
}

func TestDecodeBase64_Errors(t *testing.T) {
	_, err := DecodeBase64("bad.xlsx", "not*base64!")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "bad.xlsx", decodeErr.FileName)

	_, err = DecodeBase64("empty.xlsx", "  \n ")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadSheet_CSV(t *testing.T) {
	sheet, err := ReadSheet(csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"tuotekoodi", "maara", "yksikko"}, sheet.Header)
	assert.Equal(t, 1, sheet.HeaderLine)
	assert.Equal(t, [][]string{{"ABC123", "1", "pcs"}}, sheet.Rows)
}

func TestReadSheet_SemicolonAndBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("tuotekoodi;maara;yksikko\r\nABC123;2,5;pcs\r\n")...)
	sheet, err := ReadSheet(UploadedFile{Name: "export.csv", Data: data}, 0)
	require.NoError(t, err)
	assert.Equal(t, "tuotekoodi", sheet.Header[0])
	assert.Equal(t, [][]string{{"ABC123", "2,5", "pcs"}}, sheet.Rows)
}

func TestReadSheet_HeaderAfterBlankRows(t *testing.T) {
	f := xlsxFile(t,
		nil,
		nil,
		[]any{"tuotekoodi", "maara", "yksikko"},
		[]any{"ABC123", 1, "pcs"},
	)
	sheet, err := ReadSheet(f, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sheet.HeaderLine)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "ABC123", sheet.Rows[0][0])
}

func TestReadSheet_TrailingBlankRowsDropped(t *testing.T) {
	sheet, err := ReadSheet(csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs", ",,", " , , "), 0)
	require.NoError(t, err)
	assert.Len(t, sheet.Rows, 1)
}

func TestReadSheet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    UploadedFile
		maxSize int64
		wantIs  error
	}{
		{
			name:   "empty",
			file:   UploadedFile{Name: "a.csv"},
			wantIs: ErrEmptyFile,
		},
		{
			name:    "too large",
			file:    csvFile("tuotekoodi,maara,yksikko", "ABC123,1,pcs"),
			maxSize: 8,
			wantIs:  ErrFileTooLarge,
		},
		{
			name:   "legacy xls by signature",
			file:   UploadedFile{Name: "old.bin", Data: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1}},
			wantIs: ErrUnsupported,
		},
		{
			name:   "legacy xls by extension",
			file:   UploadedFile{Name: "OLD.XLS", Data: []byte("whatever")},
			wantIs: ErrUnsupported,
		},
		{
			name:   "only blank rows",
			file:   csvFile(",,", "", ","),
			wantIs: ErrNoHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSheet(tt.file, tt.maxSize)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestReadSheet_CorruptWorkbook(t *testing.T) {
	_, err := ReadSheet(UploadedFile{Name: "broken.xlsx", Data: []byte("PK\x03\x04 truncated")}, 0)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "broken.xlsx", decodeErr.FileName)
}

func TestTemplate_RoundTrip(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("PK")))

	sheet, err := ReadSheet(UploadedFile{Name: TemplateFileName, Data: data}, 0)
	require.NoError(t, err)
	assert.Equal(t, RequiredColumns, sheet.Header)

	rows, err := ParseRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ABC123", rows[0].ProductCode)
	assert.Equal(t, "10", rows[0].Quantity)
	assert.Equal(t, "pcs", rows[0].UnitName)
}

func TestBase64ThenImport(t *testing.T) {
	raw := "tuotekoodi,maara,yksikko\nABC123,10,pcs\n"
	f := mustFile(t, "lines.csv", base64.StdEncoding.EncodeToString([]byte(raw)))

	sheet, err := ReadSheet(f, 0)
	require.NoError(t, err)
	rows, err := ParseRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "a,b,c\n1;2", ','},
		{"semicolon", "a;b;c\n1,2", ';'},
		{"single column", "a\n1", ','},
		{"decimal commas in header line", "a;b;c,d", ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffDelimiter([]byte(tt.data)))
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"valid unchanged", []byte("hello world"), []byte("hello world")},
		{"valid unicode", []byte("määrä"), []byte("määrä")},
		{"invalid byte replaced", []byte{0x80}, []byte("\uFFFD")},
		{"truncated multibyte", []byte{0xc3}, []byte("\uFFFD")},
		{"latin-1 high byte", []byte("m\xe4\xe4r\xe4"), []byte("m\uFFFD\uFFFDr\uFFFD")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeUTF8(tt.input))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, formatXLSX, detectFormat(UploadedFile{Name: "x.csv", Data: []byte("PK\x03\x04")}))
	assert.Equal(t, formatXLSX, detectFormat(UploadedFile{Name: "x.xlsx", Data: []byte("junk")}))
	assert.Equal(t, formatCSV, detectFormat(UploadedFile{Name: "x.txt", Data: []byte("a,b")}))
	assert.Equal(t, formatCSV, detectFormat(UploadedFile{Name: "", Data: []byte("a,b")}))
	assert.Equal(t, formatXLS, detectFormat(UploadedFile{Name: "x.xls", Data: []byte("a,b")}))
}
