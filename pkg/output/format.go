// Package output provides utilities for formatting and displaying simulation results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/format"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const placeholder = "-"

// TableWriter is a simulation.Sink that prints human-readable rather than
// machine-readable tables.
type TableWriter struct {
	w             io.Writer
	p             *message.Printer
	scheduleTitle bool
	ledgerTitle   bool
	err           error
}

// NewTableWriter returns a pretty table Sink writing to w.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w, p: message.NewPrinter(language.English)}
}

func (t *TableWriter) printf(formatStr string, args ...interface{}) error {
	if t.err != nil {
		return t.err
	}
	_, t.err = t.p.Fprintf(t.w, formatStr, args...)
	return t.err
}

// EmitScheduleRow prints one row of the original schedule.
func (t *TableWriter) EmitScheduleRow(entry loans.ScheduleEntry) error {
	if !t.scheduleTitle {
		t.scheduleTitle = true
		_ = t.printf("--- Original schedule ---\n")
		_ = t.printf("Month | Due date   | Installment   | Interest      | Principal     | Remaining\n")
		_ = t.printf("_____ | __________ | _____________ | _____________ | _____________ | _____________\n")
	}
	return t.printf("%5d | %s | %13s | %13s | %13s | %13s\n",
		entry.MonthIndex, datetime.FormatDate(entry.DueDate),
		format.Currency(entry.PlannedInstallment), format.Currency(entry.Interest),
		format.Currency(entry.Principal), format.Currency(entry.RemainingPrincipal))
}

// EmitLedgerRow prints one simulated month.
func (t *TableWriter) EmitLedgerRow(row simulation.LedgerRow) error {
	if !t.ledgerTitle {
		t.ledgerTitle = true
		if t.scheduleTitle {
			_ = t.printf("\n")
		}
		_ = t.printf("--- Monthly ledger ---\n")
		_ = t.printf("Month | Due date   | Balance before | Expected      | Interest      | Paid          | Capitalized   | Amortized     | Balance after  | Notes\n")
		_ = t.printf("_____ | __________ | ______________ | _____________ | _____________ | _____________ | _____________ | _____________ | ______________ | _____\n")
	}
	return t.printf("%5d | %s | %14s | %13s | %13s | %13s | %13s | %13s | %14s | %s\n",
		row.MonthIndex, datetime.FormatDate(row.DueDate),
		format.Currency(row.BalanceBefore), format.Currency(row.ExpectedInstallment),
		format.Currency(row.InterestAccrued), format.Optional(row.AmountPaid, placeholder),
		format.Optional(row.CapitalizationAmount, placeholder), format.Optional(row.AmortizationAmount, placeholder),
		format.Currency(row.BalanceAfter), Notes(row))
}

// EmitSettlementSummary prints the settlement report.
func (t *TableWriter) EmitSettlementSummary(summary simulation.Summary) error {
	_ = t.printf("\n--- Settlement ---\n")
	_ = t.printf("Principal:          %s\n", format.Currency(summary.Principal))
	_ = t.printf("Final balance:      %s\n", format.Currency(summary.FinalBalance))
	if !summary.Terminated {
		_ = t.printf("Status:             not settled, the month limit was reached\n")
	}
	_ = t.printf("Months to payoff:   %d (original term %d, %d past term)\n",
		summary.TotalMonthsToPayoff, summary.OriginalTermMonths, summary.MonthsPastTerm)
	_ = t.printf("Late months:        %d (%d missed)\n", summary.LateMonths, summary.MissedMonths)
	_ = t.printf("Total paid:         %s\n", format.Currency(summary.TotalPaid))
	_ = t.printf("Total interest:     %s\n", format.Currency(summary.TotalInterest))
	return t.printf("Total capitalized:  %s\n", format.Currency(summary.TotalCapitalized))
}

// Notes summarizes the flags of a ledger row for display.
func Notes(row simulation.LedgerRow) string {
	notes := string(row.Outcome)
	if row.WasLate {
		notes += ",late"
	}
	if row.PastOriginalTerm {
		notes += ",past term"
	}
	if row.ExtraPrincipal.Valid {
		notes += ",extra " + format.Currency(row.ExtraPrincipal.Decimal)
	}
	if row.Surplus.Valid {
		notes += ",surplus " + format.Currency(row.Surplus.Decimal)
	}
	return notes
}

// CSVWriter is a simulation.Sink that writes comma-separated values. Each
// section starts with its own header record.
type CSVWriter struct {
	w       *csv.Writer
	section string
}

// NewCSVWriter returns a CSV Sink writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

var (
	scheduleHeader = []string{"section", "month", "due date", "installment", "interest", "principal", "remaining"}
	ledgerHeader   = []string{"section", "month", "due date", "balance before", "remaining term", "expected",
		"interest", "paid", "paid on", "capitalized", "amortized", "extra principal", "surplus", "balance after",
		"outcome", "late", "past term"}
)

func (c *CSVWriter) write(section string, header []string, record []string) error {
	if c.section != section {
		c.section = section
		if header != nil {
			if err := c.w.Write(header); err != nil {
				return err
			}
		}
	}
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func fixed(d interface{ StringFixed(int32) string }) string {
	return d.StringFixed(2)
}

func optionalFixed(valid bool, d interface{ StringFixed(int32) string }) string {
	if !valid {
		return ""
	}
	return fixed(d)
}

// EmitScheduleRow writes one schedule record.
func (c *CSVWriter) EmitScheduleRow(entry loans.ScheduleEntry) error {
	return c.write("schedule", scheduleHeader, []string{
		"schedule",
		strconv.Itoa(entry.MonthIndex),
		datetime.FormatDate(entry.DueDate),
		fixed(entry.PlannedInstallment),
		fixed(entry.Interest),
		fixed(entry.Principal),
		fixed(entry.RemainingPrincipal),
	})
}

// EmitLedgerRow writes one ledger record.
func (c *CSVWriter) EmitLedgerRow(row simulation.LedgerRow) error {
	return c.write("ledger", ledgerHeader, []string{
		"ledger",
		strconv.Itoa(row.MonthIndex),
		datetime.FormatDate(row.DueDate),
		fixed(row.BalanceBefore),
		strconv.Itoa(row.RemainingTerm),
		fixed(row.ExpectedInstallment),
		fixed(row.InterestAccrued),
		optionalFixed(row.AmountPaid.Valid, row.AmountPaid.Decimal),
		datetime.FormatDate(row.PaidOn),
		optionalFixed(row.CapitalizationAmount.Valid, row.CapitalizationAmount.Decimal),
		optionalFixed(row.AmortizationAmount.Valid, row.AmortizationAmount.Decimal),
		optionalFixed(row.ExtraPrincipal.Valid, row.ExtraPrincipal.Decimal),
		optionalFixed(row.Surplus.Valid, row.Surplus.Decimal),
		fixed(row.BalanceAfter),
		string(row.Outcome),
		strconv.FormatBool(row.WasLate),
		strconv.FormatBool(row.PastOriginalTerm),
	})
}

// EmitSettlementSummary writes the summary as key/value records.
func (c *CSVWriter) EmitSettlementSummary(summary simulation.Summary) error {
	records := [][]string{
		{"settlement", "final balance", fixed(summary.FinalBalance)},
		{"settlement", "months to payoff", strconv.Itoa(summary.TotalMonthsToPayoff)},
		{"settlement", "months past term", strconv.Itoa(summary.MonthsPastTerm)},
		{"settlement", "late months", strconv.Itoa(summary.LateMonths)},
		{"settlement", "missed months", strconv.Itoa(summary.MissedMonths)},
		{"settlement", "total paid", fixed(summary.TotalPaid)},
		{"settlement", "total interest", fixed(summary.TotalInterest)},
		{"settlement", "total capitalized", fixed(summary.TotalCapitalized)},
	}
	for _, record := range records {
		if err := c.write("settlement", []string{"section", "field", "value"}, record); err != nil {
			return err
		}
	}
	return nil
}

// PrettyAging prints a one-shot arrears assessment.
func PrettyAging(w io.Writer, result simulation.AgingResult) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "Months of arrears detected: %d\n", result.MonthsLate); err != nil {
		return err
	}
	if result.OnTime() {
		_, err := p.Fprintf(w, "The payment was on time; the capital is unchanged.\nFinal capital: %s\n",
			format.Currency(result.FinalCapital))
		return err
	}

	_, _ = p.Fprintf(w, "Initial capital: %s\n", format.Currency(result.InitialCapital))
	_, _ = p.Fprintf(w, "Final capital after arrears: %s\n\n", format.Currency(result.FinalCapital))
	_, _ = p.Fprintf(w, "Month | Capital before | Interest      | Capital after\n")
	_, _ = p.Fprintf(w, "_____ | ______________ | _____________ | ______________\n")
	for _, row := range result.Rows {
		if _, err := p.Fprintf(w, "%5d | %14s | %13s | %14s\n", row.Month,
			format.Currency(row.CapitalBefore), format.Currency(row.Interest), format.Currency(row.CapitalAfter)); err != nil {
			return err
		}
	}
	return nil
}

// CsvAging writes a one-shot arrears assessment in comma-separated value format.
func CsvAging(w io.Writer, result simulation.AgingResult) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"month", "capital before", "interest", "capital after"})
	for _, row := range result.Rows {
		_ = cw.Write([]string{
			strconv.Itoa(row.Month),
			fixed(row.CapitalBefore),
			fixed(row.Interest),
			fixed(row.CapitalAfter),
		})
	}
	_ = cw.Write([]string{"final", "", "", fixed(result.FinalCapital)})
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write aging CSV: %w", err)
	}
	return nil
}
