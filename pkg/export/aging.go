package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/format"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// CompoundingSheet holds one row per month of arrears in the aging workbook.
const CompoundingSheet = "compounding"

const agingChartWidth = 170.0

var compoundingColumns = []pdfColumn{
	{"Month", 20, "C"},
	{"Capital before", 50, "R"},
	{"Interest", 50, "R"},
	{"Capital after", 50, "R"},
}

// AgingReport is everything an exported arrears assessment shows.
type AgingReport struct {
	Title     string
	Terms     simulation.AgingTerms
	Result    simulation.AgingResult
	Generated time.Time
}

// NewAgingReport assembles a report for a finished arrears assessment.
func NewAgingReport(title string, terms simulation.AgingTerms, result simulation.AgingResult) AgingReport {
	if title == "" {
		title = "Arrears Aging Report"
	}
	return AgingReport{
		Title:     title,
		Terms:     terms,
		Result:    result,
		Generated: time.Now(),
	}
}

// BuildAging renders the arrears report in the requested format and returns
// the document with its content type.
func BuildAging(format string, report AgingReport) ([]byte, string, error) {
	return render(format,
		func() ([]byte, error) { return BuildAgingPDF(report) },
		func() ([]byte, error) { return BuildAgingXLSX(report) })
}

// AgingFileName is the suggested download name for an arrears report in format.
func AgingFileName(format string, generated time.Time) string {
	return fmt.Sprintf("loan-arrears-aging-%s.%s", generated.Format("20060102"), format)
}

// BuildAgingPDF renders the assessment summary, a capital-versus-month chart
// and the compounding history.
func BuildAgingPDF(report AgingReport) ([]byte, error) {
	result := report.Result
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, report.Title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	lines := []string{
		fmt.Sprintf("Capital: %s at %s%% per month", format.Currency(report.Terms.Capital), report.Terms.PeriodicRate.String()),
		fmt.Sprintf("Expected payment date: %s", datetime.FormatDate(report.Terms.ExpectedDate)),
		fmt.Sprintf("Actual payment date: %s", datetime.FormatDate(report.Terms.ActualDate)),
		fmt.Sprintf("Months of arrears: %d", result.MonthsLate),
		fmt.Sprintf("Initial capital: %s", format.Currency(result.InitialCapital)),
		fmt.Sprintf("Final capital: %s", format.Currency(result.FinalCapital)),
		fmt.Sprintf("Generated: %s", report.Generated.Format(time.RFC3339)),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(3)

	if result.OnTime() {
		pdf.Cell(0, 6, "The payment was on time; the capital is unchanged.")
		pdf.Ln(5)
	} else {
		drawCapitalChart(pdf, result)

		pdf.SetFont("Arial", "B", 9)
		for _, column := range compoundingColumns {
			pdf.CellFormat(column.width, 6, column.title, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, row := range result.Rows {
			cells := []string{
				fmt.Sprintf("%d", row.Month),
				format.NumericCurrency(row.CapitalBefore),
				format.NumericCurrency(row.Interest),
				format.NumericCurrency(row.CapitalAfter),
			}
			for i, column := range compoundingColumns {
				pdf.CellFormat(column.width, 5, cells[i], "1", 0, column.align, false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawCapitalChart plots the capital owed after each month of arrears,
// starting from the initial capital at month 0.
func drawCapitalChart(pdf *gofpdf.Fpdf, result simulation.AgingResult) {
	months := len(result.Rows)
	peak := result.FinalCapital
	if months == 0 || !peak.IsPositive() {
		return
	}

	left, top := pdf.GetX()+12, pdf.GetY()
	bottom := top + chartHeight

	pdf.SetFont("Arial", "", 8)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, bottom, left+agingChartWidth, bottom)
	pdf.Text(left-12, top+2, format.NumericCurrency(peak))
	pdf.Text(left-4, bottom+4, "0")
	pdf.Text(left+agingChartWidth-10, bottom+4, fmt.Sprintf("%d", months))

	x := func(month int) float64 {
		return left + agingChartWidth*float64(month)/float64(months)
	}
	y := func(capital float64) float64 {
		return bottom - chartHeight*capital/peak.InexactFloat64()
	}

	pdf.SetDrawColor(30, 30, 200)
	pdf.SetFillColor(30, 30, 200)
	previousX, previousY := x(0), y(result.InitialCapital.InexactFloat64())
	pdf.Circle(previousX, previousY, 0.8, "F")
	for _, row := range result.Rows {
		cx, cy := x(row.Month), y(row.CapitalAfter.InexactFloat64())
		pdf.Line(previousX, previousY, cx, cy)
		pdf.Circle(cx, cy, 0.8, "F")
		previousX, previousY = cx, cy
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetY(bottom + 8)
	pdf.Cell(0, 5, "Capital versus months of arrears.")
	pdf.Ln(8)
}

// BuildAgingXLSX renders the assessment summary and the compounding history
// as one sheet each.
func BuildAgingXLSX(report AgingReport) ([]byte, error) {
	result := report.Result
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(CompoundingSheet); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	summaryRows := [][]interface{}{
		{report.Title},
		{},
		{"Capital", money2(report.Terms.Capital)},
		{"Periodic rate (%)", report.Terms.PeriodicRate.InexactFloat64()},
		{"Expected payment date", datetime.FormatDate(report.Terms.ExpectedDate)},
		{"Actual payment date", datetime.FormatDate(report.Terms.ActualDate)},
		{"Months of arrears", result.MonthsLate},
		{"Initial capital", money2(result.InitialCapital)},
		{"Final capital", money2(result.FinalCapital)},
	}
	if err := writeRows(f, SummarySheet, summaryRows); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SummarySheet, "B3", "B3", money)
	_ = f.SetCellStyle(SummarySheet, "B8", "B9", money)
	_ = f.SetColWidth(SummarySheet, "A", "A", 26)

	rows := [][]interface{}{{"Month", "Capital before", "Interest", "Capital after"}}
	for _, row := range result.Rows {
		rows = append(rows, []interface{}{
			row.Month,
			money2(row.CapitalBefore),
			money2(row.Interest),
			money2(row.CapitalAfter),
		})
	}
	if err := writeRows(f, CompoundingSheet, rows); err != nil {
		return nil, err
	}
	if len(result.Rows) > 0 {
		_ = f.SetCellStyle(CompoundingSheet, "B2", fmt.Sprintf("D%d", len(result.Rows)+1), money)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
