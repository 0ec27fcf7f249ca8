package payslip

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/money"
	"github.com/jung-kurt/gofpdf"
)

type Line struct {
	Description string
	Credit      bool
	Amount      int64
}

type Payslip struct {
	CompanyID    string
	EmployeeName string
	EmployeeID   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Currency     string
	Lines        []Line
	GrossPay     int64
	Deductions   int64
	NetPay       int64
}

// Render writes the payslip as an A4 PDF document.
func Render(p Payslip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", p.EmployeeName, p.PeriodEnd.Format("01/2006")), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Employee: %s", p.EmployeeName)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 8, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Credits", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Debits", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range p.Lines {
		credit, debit := "", ""
		if line.Credit {
			credit = money.Format(line.Amount)
		} else {
			debit = money.Format(line.Amount)
		}
		pdf.CellFormat(110, 7, tr(line.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, credit, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, debit, "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 8, "Totals", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, money.Format(p.GrossPay), "T", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, money.Format(p.Deductions), "T", 1, "R", false, 0, "")
	pdf.CellFormat(110, 8, fmt.Sprintf("Net pay (%s)", p.Currency), "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 8, money.Format(p.NetPay), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render payslip: %w", err)
	}
	return buf.Bytes(), nil
}
