// Package loans provides fixed-installment (French/annuity) loan calculations.
package loans

import (
	"errors"
	"math"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNumericOverflow reports an installment whose growth factor (1+r)^n
// cannot be represented. It stands in for an unaffordable or undefined
// installment and must never be recorded as an amount.
var ErrNumericOverflow = errors.New("installment formula overflow")

var one = decimal.NewFromInt(1)

// ScheduleEntry holds the values for one month of the original plan.
type ScheduleEntry struct {
	MonthIndex         int
	DueDate            time.Time
	PlannedInstallment decimal.Decimal
	Interest           decimal.Decimal
	Principal          decimal.Decimal
	RemainingPrincipal decimal.Decimal
}

// ComputeInstallment calculates the fixed periodic installment that retires
// balance over remainingMonths at periodicRatePercent per period, rounded
// half-up to cents.
func ComputeInstallment(balance, periodicRatePercent decimal.Decimal, remainingMonths int) (decimal.Decimal, error) {
	if remainingMonths <= 0 || !balance.IsPositive() {
		return decimal.Zero, nil
	}

	n := int64(remainingMonths)
	if periodicRatePercent.IsZero() {
		// For zero interest, simply divide the balance by the term
		return mathutil.ClampZero(mathutil.Round(balance.Div(decimal.NewFromInt(n)))), nil
	}

	r := mathutil.RateFraction(periodicRatePercent)
	if math.IsInf(math.Pow(1+r.InexactFloat64(), float64(n)), 0) {
		return decimal.Zero, ErrNumericOverflow
	}

	power := one.Add(r).Pow(decimal.NewFromInt(n))
	denominator := power.Sub(one)
	if denominator.IsZero() {
		return balance, nil
	}

	installment := balance.Mul(r).Mul(power).Div(denominator)
	return mathutil.ClampZero(mathutil.Round(installment)), nil
}

// PeriodInterest calculates one period's interest on the balance, rounded to
// cents.
func PeriodInterest(balance, periodicRatePercent decimal.Decimal) decimal.Decimal {
	return mathutil.ApplyPercentage(balance, periodicRatePercent)
}

// Plan describes the original terms a schedule is generated from.
type Plan struct {
	Principal    decimal.Decimal
	PeriodicRate decimal.Decimal
	TermMonths   int
	StartDate    time.Time
}

// ScheduleGenerator produces the informational schedule for the original term.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule creates the original schedule: one entry per month of the
// term, each due one month after the previous one starting a month after the
// plan start date. It is informational only and stops describing reality as
// soon as a payment deviates from it.
func (g *ScheduleGenerator) GenerateSchedule(plan Plan) ([]ScheduleEntry, error) {
	installment, err := ComputeInstallment(plan.Principal, plan.PeriodicRate, plan.TermMonths)
	if err != nil {
		return nil, err
	}

	schedule := make([]ScheduleEntry, 0, plan.TermMonths)
	remaining := plan.Principal
	dueDate := plan.StartDate
	for month := 1; month <= plan.TermMonths; month++ {
		dueDate = datetime.AddOneMonth(dueDate)

		entry := ScheduleEntry{
			MonthIndex:         month,
			DueDate:            dueDate,
			PlannedInstallment: installment,
			Interest:           PeriodInterest(remaining, plan.PeriodicRate),
		}
		entry.Principal = installment.Sub(entry.Interest)

		// The last month absorbs the rounding drift so the plan closes at zero.
		if month == plan.TermMonths {
			entry.Principal = remaining
			entry.PlannedInstallment = remaining.Add(entry.Interest)
		}

		remaining = mathutil.ClampZero(remaining.Sub(entry.Principal))
		entry.RemainingPrincipal = remaining
		schedule = append(schedule, entry)
	}

	g.logger.Debug("generated original schedule",
		zap.String("op", "loans.GenerateSchedule"),
		zap.Int("months", len(schedule)),
		zap.String("installment", installment.StringFixed(2)),
	)

	return schedule, nil
}
