package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidFile       = errors.New("file could not be parsed")
	ErrEmptyData         = errors.New("file contains no data rows")
)

// Format is the detected spreadsheet flavour of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Accepted upload content types.
const (
	MIMECSV  = "text/csv"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedMIME = map[string]bool{
	MIMECSV:  true,
	MIMEXLS:  true,
	MIMEXLSX: true,
}

var zipMagic = []byte("PK\x03\x04")

var formatByExt = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
}

// DetectFormat gates an upload on both its extension and its declared MIME type.
func DetectFormat(filename, contentType string) (Format, error) {
	format, ok := formatByExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !allowedMIME[strings.ToLower(mediaType)] {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
	return format, nil
}

// ContentTypeFor returns the MIME type clients should send for filename.
func ContentTypeFor(filename string) string {
	switch formatByExt[strings.ToLower(filepath.Ext(filename))] {
	case FormatXLSX:
		return MIMEXLSX
	case FormatXLS:
		return MIMEXLS
	default:
		return MIMECSV
	}
}

// File is a parsed upload.
type File struct {
	Headers []string
	Rows    []Row
}

// Parse reads a CSV or Excel payload. Header cells are trimmed and rows whose
// cells are all blank are dropped.
func Parse(format Format, data []byte) (*File, error) {
	var records [][]string
	var err error
	switch format {
	case FormatCSV:
		records, err = readCSV(data)
	case FormatXLSX:
		records, err = readExcel(data)
	case FormatXLS:
		// Some tools save OOXML workbooks under an .xls name.
		if bytes.HasPrefix(data, zipMagic) {
			records, err = readExcel(data)
		} else {
			records, err = readXLS(data)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return buildFile(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return rows, nil
}

// readXLS reads the first sheet of a legacy BIFF workbook. The reader panics
// on some malformed files, so panics are reported as ErrInvalidFile.
func readXLS(data []byte) (records [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("%w: %v", ErrInvalidFile, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFile)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFile)
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		records = append(records, cells)
	}
	return records, nil
}

func buildFile(records [][]string) (*File, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidFile)
	}

	headers := make([]string, len(records[0]))
	named := 0
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, fmt.Errorf("%w: header row is empty", ErrInvalidFile)
	}

	file := &File{Headers: headers}
	for i, rec := range records[1:] {
		cells := make(map[string]string, len(headers))
		blank := true
		for j, h := range headers {
			if h == "" || j >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[j])
			if v != "" {
				blank = false
			}
			cells[h] = v
		}
		if blank {
			continue
		}
		file.Rows = append(file.Rows, Row{Number: i + 2, Cells: cells})
	}
	if len(file.Rows) == 0 {
		return nil, ErrEmptyData
	}
	return file, nil
}
