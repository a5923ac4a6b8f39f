// Package export renders a finished simulation or arrears assessment as a
// downloadable document.
package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/iwvelando/loan-arrears/pkg/validation"
)

// Content types served for each export format.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrIncompleteReport is returned when a report is built from a run that never settled.
var ErrIncompleteReport = errors.New("simulation did not produce a settlement summary")

// Report is everything an exported document shows.
type Report struct {
	Title     string
	Terms     simulation.Terms
	Schedule  []loans.ScheduleEntry
	Ledger    []simulation.LedgerRow
	Summary   simulation.Summary
	Generated time.Time
}

// NewReport assembles a report from the rows a Recorder collected.
func NewReport(title string, terms simulation.Terms, recorder *simulation.Recorder) (Report, error) {
	if recorder == nil || recorder.Summary == nil {
		return Report{}, ErrIncompleteReport
	}
	if title == "" {
		title = "Loan Arrears Report"
	}
	return Report{
		Title:     title,
		Terms:     terms,
		Schedule:  recorder.Schedule,
		Ledger:    recorder.Ledger,
		Summary:   *recorder.Summary,
		Generated: time.Now(),
	}, nil
}

// Build renders the report in the requested format and returns the document
// with its content type.
func Build(format string, report Report) ([]byte, string, error) {
	return render(format,
		func() ([]byte, error) { return BuildReportPDF(report) },
		func() ([]byte, error) { return BuildReportXLSX(report) })
}

func render(format string, pdf, xlsx func() ([]byte, error)) ([]byte, string, error) {
	if err := validation.ValidateExportFormat(format); err != nil {
		return nil, "", err
	}

	switch format {
	case constants.ExportFormatPDF:
		data, err := pdf()
		if err != nil {
			return nil, "", fmt.Errorf("failed to render PDF: %w", err)
		}
		return data, ContentTypePDF, nil
	default:
		data, err := xlsx()
		if err != nil {
			return nil, "", fmt.Errorf("failed to render XLSX: %w", err)
		}
		return data, ContentTypeXLSX, nil
	}
}

// FileName is the suggested download name for a report in format.
func FileName(format string, generated time.Time) string {
	return fmt.Sprintf("loan-arrears-%s.%s", generated.Format("20060102"), format)
}
