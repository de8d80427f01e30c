// Package export writes console lists to spreadsheets and PDF reports, and
// reads holiday calendars back from spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/attendly/hrdesk/internal/hrapi"
)

const dateLayout = "2006-01-02"

var holidayHeader = []any{"Date", "Name", "Optional", "Location"}

// HolidaysXLSX writes a single-sheet workbook of the year's holidays. The
// layout is the one ReadHolidays accepts.
func HolidaysXLSX(w io.Writer, year int, hols []hrapi.Holiday) error {
	rows := make([][]any, 0, len(hols))
	for _, h := range hols {
		rows = append(rows, []any{h.Date.String(), h.Name, yesNo(h.Optional), h.LocationID})
	}
	return writeSheet(w, "Holidays "+strconv.Itoa(year), holidayHeader, rows, []float64{12, 32, 10, 16})
}

// ApplicationsXLSX writes leave applications. typeNames maps leave type ids
// to display names; unknown ids are written as is.
func ApplicationsXLSX(w io.Writer, apps []hrapi.LeaveApplication, typeNames map[string]string) error {
	header := []any{"Employee", "Leave type", "From", "To", "Days", "Status", "Reason", "Applied"}
	rows := make([][]any, 0, len(apps))
	for _, a := range apps {
		name := a.EmployeeName
		if name == "" {
			name = a.EmployeeID
		}
		lt := typeNames[a.LeaveTypeID]
		if lt == "" {
			lt = a.LeaveTypeID
		}
		applied := ""
		if !a.CreatedAt.IsZero() {
			applied = a.CreatedAt.Format(dateLayout)
		}
		rows = append(rows, []any{name, lt, a.StartDate.String(), a.EndDate.String(), a.Days, a.Status, a.Reason, applied})
	}
	return writeSheet(w, "Leave applications", header, rows, []float64{24, 18, 12, 12, 8, 12, 40, 12})
}

func writeSheet(w io.Writer, sheet string, header []any, rows [][]any, widths []float64) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E7ECF5"}},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
