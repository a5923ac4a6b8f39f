package simulation

import (
	"fmt"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/iwvelando/loan-arrears/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AgingTerms describes a single payment that was due on ExpectedDate and
// arrived on ActualDate. Interest compounds monthly until it arrives.
type AgingTerms struct {
	Capital      decimal.Decimal
	PeriodicRate decimal.Decimal // percent per period
	ExpectedDate time.Time
	ActualDate   time.Time
}

// Validate rejects a non-positive capital or a negative rate.
func (t AgingTerms) Validate() error {
	if !t.Capital.IsPositive() {
		return fmt.Errorf("%w: capital must be positive, got %s", ErrInvalidLoanTerms, t.Capital)
	}
	if t.PeriodicRate.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrNegativeRate, t.PeriodicRate)
	}
	return nil
}

// CompoundingRow records one month of compounding.
type CompoundingRow struct {
	Month         int
	CapitalBefore decimal.Decimal
	Interest      decimal.Decimal
	CapitalAfter  decimal.Decimal
}

// AgingResult is the outcome of a one-shot arrears assessment.
type AgingResult struct {
	MonthsLate     int
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	Rows           []CompoundingRow
}

// OnTime reports whether the payment arrived without a full month of arrears.
func (r AgingResult) OnTime() bool {
	return r.MonthsLate == 0
}

// Compound applies rate percent of interest to capital once per month for the
// given number of months. Each month's interest and capital are rounded to
// cents and the next month compounds on the rounded capital. Zero months
// returns capital unchanged.
func Compound(capital, rate decimal.Decimal, months int) (decimal.Decimal, []CompoundingRow) {
	if months <= 0 {
		return capital, nil
	}

	rows := make([]CompoundingRow, 0, months)
	current := mathutil.Round(capital)
	for month := 1; month <= months; month++ {
		interest := loans.PeriodInterest(current, rate)
		next := mathutil.Round(current.Add(interest))
		rows = append(rows, CompoundingRow{
			Month:         month,
			CapitalBefore: current,
			Interest:      interest,
			CapitalAfter:  next,
		})
		current = next
	}
	return current, rows
}

// AssessArrears detects how many whole months the payment was late and
// compounds the capital for exactly that many months.
func AssessArrears(logger *zap.Logger, terms AgingTerms) (AgingResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := terms.Validate(); err != nil {
		return AgingResult{}, err
	}

	monthsLate := datetime.MonthsLate(terms.ExpectedDate, terms.ActualDate)
	final, rows := Compound(terms.Capital, terms.PeriodicRate, monthsLate)

	logger.Debug("arrears detected",
		zap.String("op", "simulation.AssessArrears"),
		zap.Int("months_late", monthsLate),
		zap.String("expected", datetime.FormatDate(terms.ExpectedDate)),
		zap.String("actual", datetime.FormatDate(terms.ActualDate)),
		zap.String("final_capital", final.StringFixed(2)),
	)

	return AgingResult{
		MonthsLate:     monthsLate,
		InitialCapital: terms.Capital,
		FinalCapital:   final,
		Rows:           rows,
	}, nil
}
