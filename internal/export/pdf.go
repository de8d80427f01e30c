package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/attendly/hrdesk/internal/hrapi"
)

// BalanceReportPDF renders one employee's leave balances as an A4 report.
func BalanceReportPDF(w io.Writer, emp hrapi.Employee, bals []hrapi.LeaveBalance, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Leave balance - "+emp.Name, true)
	pdf.SetCreator("hrdesk", false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Generated %s - page %d/{nb}", generated.Format("2006-01-02 15:04"), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave balance")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Employee: %s (%s)", emp.Name, emp.Code)))
	pdf.Ln(6)
	if emp.Department != "" {
		pdf.Cell(0, 7, tr("Department: "+emp.Department))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{62, 30, 30, 30, 30}
	header := []string{"Leave type", "Entitled", "Used", "Pending", "Available"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(231, 236, 245)
	for i, h := range header {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	var total hrapi.LeaveBalance
	for _, b := range bals {
		name := b.LeaveTypeName
		if name == "" {
			name = b.LeaveTypeID
		}
		pdf.CellFormat(widths[0], 7, tr(name), "1", 0, "L", false, 0, "")
		for i, v := range []float64{b.Entitled, b.Used, b.Pending, b.Available} {
			pdf.CellFormat(widths[i+1], 7, days(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
		total.Entitled += b.Entitled
		total.Used += b.Used
		total.Pending += b.Pending
		total.Available += b.Available
	}
	if len(bals) == 0 {
		pdf.CellFormat(sum(widths), 7, "No leave balances on record.", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	} else {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(widths[0], 7, "Total", "1", 0, "L", true, 0, "")
		for i, v := range []float64{total.Entitled, total.Used, total.Pending, total.Available} {
			pdf.CellFormat(widths[i+1], 7, days(v), "1", 0, "R", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render balance report: %w", err)
	}
	return pdf.Output(w)
}

// days formats half-day granularity without trailing zeros.
func days(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func sum(xs []float64) float64 {
	var t float64
	for _, x := range xs {
		t += x
	}
	return t
}
