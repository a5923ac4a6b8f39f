package export

import (
	"bytes"
	"fmt"

	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SummarySheet  = "summary"
	ScheduleSheet = "schedule"
	LedgerSheet   = "ledger"
)

// BuildReportXLSX renders the summary, the original schedule and the ledger
// as one sheet each.
func BuildReportXLSX(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	for _, sheet := range []string{ScheduleSheet, LedgerSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	summary := report.Summary
	summaryRows := [][]interface{}{
		{report.Title},
		{},
		{"Principal", money2(report.Terms.Principal)},
		{"Periodic rate (%)", report.Terms.PeriodicRate.InexactFloat64()},
		{"Original term (months)", report.Terms.OriginalTermMonths},
		{"Start date", datetime.FormatDate(report.Terms.StartDate)},
		{"Missed payment policy", string(report.Terms.DefaultPolicy)},
		{"Months to payoff", summary.TotalMonthsToPayoff},
		{"Months past term", summary.MonthsPastTerm},
		{"Late months", summary.LateMonths},
		{"Missed months", summary.MissedMonths},
		{"Total paid", money2(summary.TotalPaid)},
		{"Total interest", money2(summary.TotalInterest)},
		{"Total capitalized", money2(summary.TotalCapitalized)},
		{"Final balance", money2(summary.FinalBalance)},
	}
	if err := writeRows(f, SummarySheet, summaryRows); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SummarySheet, "B3", "B3", money)
	_ = f.SetCellStyle(SummarySheet, "B12", "B15", money)
	_ = f.SetColWidth(SummarySheet, "A", "A", 26)

	scheduleRows := [][]interface{}{{"Month", "Due date", "Installment", "Interest", "Principal", "Remaining"}}
	for _, entry := range report.Schedule {
		scheduleRows = append(scheduleRows, []interface{}{
			entry.MonthIndex,
			datetime.FormatDate(entry.DueDate),
			money2(entry.PlannedInstallment),
			money2(entry.Interest),
			money2(entry.Principal),
			money2(entry.RemainingPrincipal),
		})
	}
	if err := writeRows(f, ScheduleSheet, scheduleRows); err != nil {
		return nil, err
	}
	if len(report.Schedule) > 0 {
		_ = f.SetCellStyle(ScheduleSheet, "C2", fmt.Sprintf("F%d", len(report.Schedule)+1), money)
	}

	ledgerRows := [][]interface{}{{"Month", "Due date", "Remaining term", "Balance before", "Expected",
		"Interest", "Paid", "Paid on", "Capitalized", "Amortized", "Extra principal", "Surplus",
		"Balance after", "Outcome", "Late", "Past term"}}
	for _, row := range report.Ledger {
		ledgerRows = append(ledgerRows, []interface{}{
			row.MonthIndex,
			datetime.FormatDate(row.DueDate),
			row.RemainingTerm,
			money2(row.BalanceBefore),
			money2(row.ExpectedInstallment),
			money2(row.InterestAccrued),
			optionalMoney(row.AmountPaid),
			datetime.FormatDate(row.PaidOn),
			optionalMoney(row.CapitalizationAmount),
			optionalMoney(row.AmortizationAmount),
			optionalMoney(row.ExtraPrincipal),
			optionalMoney(row.Surplus),
			money2(row.BalanceAfter),
			string(row.Outcome),
			row.WasLate,
			row.PastOriginalTerm,
		})
	}
	if err := writeRows(f, LedgerSheet, ledgerRows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func money2(amount decimal.Decimal) float64 {
	return amount.Round(2).InexactFloat64()
}

// optionalMoney leaves absent amounts as empty cells.
func optionalMoney(amount decimal.NullDecimal) interface{} {
	if !amount.Valid {
		return ""
	}
	return money2(amount.Decimal)
}
