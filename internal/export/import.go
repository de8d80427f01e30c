package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/attendly/hrdesk/internal/hrapi"
)

const maxImportRows = 5000

var (
	ErrEmptySheet    = errors.New("worksheet is empty")
	ErrMissingHeader = errors.New("header must include Date and Name columns")
)

// RowError is a spreadsheet row that could not be turned into a holiday.
type RowError struct {
	Row int // 1-based, as shown by spreadsheet apps
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

// ReadHolidays parses a holiday calendar from an .xlsx or legacy .xls file.
// The first row is a header; Date and Name columns are required, Optional
// and Location are read when present. Bad rows are reported, not fatal.
func ReadHolidays(r io.Reader, filename string) ([]hrapi.Holiday, []RowError, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, nil, err
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, okDate := cols["date"]
	nameCol, okName := cols["name"]
	if !okDate || !okName {
		return nil, nil, ErrMissingHeader
	}
	optCol, hasOpt := cols["optional"]
	locCol, hasLoc := cols["location"]

	var (
		out []hrapi.Holiday
		bad []RowError
	)
	for i, row := range rows[1:] {
		n := i + 2
		rawDate, name := cell(row, dateCol), cell(row, nameCol)
		if rawDate == "" && name == "" {
			continue
		}
		if name == "" {
			bad = append(bad, RowError{Row: n, Err: errors.New("name is empty")})
			continue
		}
		d, err := parseSheetDate(rawDate)
		if err != nil {
			bad = append(bad, RowError{Row: n, Err: err})
			continue
		}
		h := hrapi.Holiday{Name: name, Date: d}
		if hasOpt {
			h.Optional = truthy(cell(row, optCol))
		}
		if hasLoc {
			h.LocationID = cell(row, locCol)
		}
		out = append(out, h)
	}
	return out, bad, nil
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if wb.NumSheets() == 0 {
			return nil, ErrEmptySheet
		}
		rows = wb.ReadAllCells(maxImportRows)
	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = f.Close() }()
		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, ErrEmptySheet
		}
		if rows, err = f.GetRows(sheet); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .xlsx or .xls)", ext)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	if len(rows) > maxImportRows {
		return nil, fmt.Errorf("too many rows (%d, limit %d)", len(rows), maxImportRows)
	}
	return rows, nil
}

var sheetDateLayouts = []string{
	dateLayout,
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// parseSheetDate accepts ISO dates, day-first dates and Excel serials.
func parseSheetDate(s string) (hrapi.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return hrapi.Date{}, errors.New("date is empty")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		// plain years and small numbers are not serials
		if serial >= 20000 && serial <= 80000 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return hrapi.NewDate(t.Year(), t.Month(), t.Day()), nil
			}
		}
		return hrapi.Date{}, fmt.Errorf("unrecognized date %q", s)
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return hrapi.NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return hrapi.Date{}, fmt.Errorf("unrecognized date %q", s)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "true", "1", "optional":
		return true
	}
	return false
}
