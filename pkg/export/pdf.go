package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/format"
	"github.com/iwvelando/loan-arrears/pkg/output"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const (
	chartHeight = 70.0
	chartWidth  = 250.0
)

type pdfColumn struct {
	title string
	width float64
	align string
}

var ledgerColumns = []pdfColumn{
	{"Month", 14, "C"},
	{"Due date", 24, "C"},
	{"Balance before", 30, "R"},
	{"Expected", 26, "R"},
	{"Interest", 24, "R"},
	{"Paid", 26, "R"},
	{"Capitalized", 26, "R"},
	{"Amortized", 26, "R"},
	{"Balance after", 30, "R"},
	{"Notes", 51, "L"},
}

// BuildReportPDF renders the settlement summary, a balance chart and the
// monthly ledger.
func BuildReportPDF(report Report) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, report.Title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Principal: %s at %s%% per month over %d months",
		format.Currency(report.Terms.Principal), report.Terms.PeriodicRate.String(), report.Terms.OriginalTermMonths))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Start date: %s", datetime.FormatDate(report.Terms.StartDate)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Missed payment policy: %s", report.Terms.DefaultPolicy))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.Generated.Format(time.RFC3339)))
	pdf.Ln(8)

	summary := report.Summary
	pdf.Cell(0, 6, fmt.Sprintf("Months to payoff: %d (%d past the original term)",
		summary.TotalMonthsToPayoff, summary.MonthsPastTerm))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Late months: %d (%d missed)", summary.LateMonths, summary.MissedMonths))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total paid: %s  Total interest: %s  Total capitalized: %s",
		format.Currency(summary.TotalPaid), format.Currency(summary.TotalInterest), format.Currency(summary.TotalCapitalized)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Final balance: %s", format.Currency(summary.FinalBalance)))
	pdf.Ln(8)

	drawBalanceChart(pdf, report)

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 9)
	for _, column := range ledgerColumns {
		pdf.CellFormat(column.width, 6, column.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, row := range report.Ledger {
		cells := []string{
			fmt.Sprintf("%d", row.MonthIndex),
			datetime.FormatDate(row.DueDate),
			format.NumericCurrency(row.BalanceBefore),
			format.NumericCurrency(row.ExpectedInstallment),
			format.NumericCurrency(row.InterestAccrued),
			optionalNumeric(row.AmountPaid),
			optionalNumeric(row.CapitalizationAmount),
			optionalNumeric(row.AmortizationAmount),
			format.NumericCurrency(row.BalanceAfter),
			output.Notes(row),
		}
		for i, column := range ledgerColumns {
			pdf.CellFormat(column.width, 5, cells[i], "1", 0, column.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func optionalNumeric(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return "-"
	}
	return format.NumericCurrency(amount.Decimal)
}

// drawBalanceChart plots the simulated balance against the original schedule's
// remaining principal, one point per month.
func drawBalanceChart(pdf *gofpdf.Fpdf, report Report) {
	months := len(report.Ledger)
	if len(report.Schedule) > months {
		months = len(report.Schedule)
	}
	if months == 0 {
		return
	}

	peak := report.Terms.Principal
	for _, row := range report.Ledger {
		peak = decimal.Max(peak, row.BalanceBefore, row.BalanceAfter)
	}
	if !peak.IsPositive() {
		return
	}

	left, top := pdf.GetX()+10, pdf.GetY()
	bottom := top + chartHeight

	pdf.SetFont("Arial", "", 8)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, bottom, left+chartWidth, bottom)
	pdf.Text(left-10, top+2, format.NumericCurrency(peak))
	pdf.Text(left-4, bottom+4, "0")
	pdf.Text(left+chartWidth-10, bottom+4, fmt.Sprintf("%d", months))

	x := func(month int) float64 {
		return left + chartWidth*float64(month)/float64(months)
	}
	y := func(balance decimal.Decimal) float64 {
		return bottom - chartHeight*balance.Div(peak).InexactFloat64()
	}

	pdf.SetDrawColor(150, 150, 150)
	previousX, previousY := x(0), y(report.Terms.Principal)
	for _, entry := range report.Schedule {
		cx, cy := x(entry.MonthIndex), y(entry.RemainingPrincipal)
		pdf.Line(previousX, previousY, cx, cy)
		previousX, previousY = cx, cy
	}

	pdf.SetDrawColor(200, 30, 30)
	previousX, previousY = x(0), y(report.Terms.Principal)
	for _, row := range report.Ledger {
		cx, cy := x(row.MonthIndex), y(row.BalanceAfter)
		pdf.Line(previousX, previousY, cx, cy)
		previousX, previousY = cx, cy
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetY(bottom + 8)
	pdf.Cell(0, 5, "Red: simulated balance. Grey: original schedule.")
	pdf.Ln(5)
}
