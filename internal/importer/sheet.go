package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const emptyHeaderKey = "__EMPTY"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sheet is the first worksheet of an uploaded file: the header row and
// every non-blank data row below it.
type Sheet struct {
	Headers []string
	Rows    []Row
}

// Row is one data row. Index is the zero-based position among data rows.
// Keyed maps header keys to cell values; columns with an empty or repeated
// header get synthetic keys, so lookups by raw header text can miss.
type Row struct {
	Index  int
	Values []string
	Keyed  map[string]string
}

// Value returns the cell at column i or "" when the row is shorter.
func (r Row) Value(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// ReadSheet parses spreadsheet bytes. CSV is chosen by file extension,
// everything else goes through the xlsx reader.
func ReadSheet(filename string, content []byte) (*Sheet, error) {
	var (
		grid [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		grid, err = readCSV(content)
	default:
		grid, err = readWorkbook(content)
	}
	if err != nil {
		return nil, err
	}
	return buildSheet(grid)
}

func readWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), content)
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		content = decoded
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		grid = append(grid, rec)
	}
	return grid, nil
}

func buildSheet(grid [][]string) (*Sheet, error) {
	for len(grid) > 0 && blank(grid[0]) {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}

	width := 0
	for _, rec := range grid {
		width = max(width, len(rec))
	}

	headers := make([]string, width)
	copy(headers, grid[0])
	keys := headerKeys(headers)

	sheet := &Sheet{Headers: headers}
	for _, rec := range grid[1:] {
		if blank(rec) {
			continue
		}
		values := make([]string, width)
		copy(values, rec)

		keyed := make(map[string]string, width)
		for i, v := range values {
			if v == "" {
				continue
			}
			keyed[keys[i]] = v
		}
		sheet.Rows = append(sheet.Rows, Row{
			Index:  len(sheet.Rows),
			Values: values,
			Keyed:  keyed,
		})
	}
	return sheet, nil
}

// headerKeys names the keyed-row columns: blank headers become __EMPTY,
// __EMPTY_1, ... and repeated headers get a numeric suffix. A generated key
// never collides with a header that appears literally in the sheet.
func headerKeys(headers []string) []string {
	literal := make(map[string]bool, len(headers))
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			literal[h] = true
		}
	}

	keys := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	next := make(map[string]int, len(headers))
	for i, h := range headers {
		base, empty := h, strings.TrimSpace(h) == ""
		if empty {
			base = emptyHeaderKey
		}
		key := base
		if used[key] || (empty && literal[key]) {
			n := next[base]
			if n == 0 {
				n = 1
			}
			for {
				key = base + "_" + strconv.Itoa(n)
				n++
				if !used[key] && !literal[key] {
					break
				}
			}
			next[base] = n
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
