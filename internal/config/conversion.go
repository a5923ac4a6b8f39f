package config

import (
	"fmt"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/iwvelando/loan-arrears/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Terms converts the loan section into simulation terms.
func (c *Configuration) Terms() (simulation.Terms, error) {
	start, err := datetime.ParseDate(c.Loan.StartDate)
	if err != nil {
		return simulation.Terms{}, fmt.Errorf("loan start date: %w", err)
	}
	policy, err := simulation.ParsePolicy(c.Loan.DefaultPolicy)
	if err != nil {
		return simulation.Terms{}, err
	}

	return simulation.Terms{
		Principal:          mathutil.FromFloat(c.Loan.Principal),
		PeriodicRate:       decimal.NewFromFloat(c.Loan.PeriodicRate),
		OriginalTermMonths: c.Loan.TermMonths,
		StartDate:          start,
		DefaultPolicy:      policy,
		MaxMonths:          c.Loan.MaxMonths,
	}, nil
}

// AgingTerms converts the aging section into a one-shot arrears assessment.
func (c *Configuration) AgingTerms() (simulation.AgingTerms, error) {
	expected, err := datetime.ParseDate(c.Aging.ExpectedDate)
	if err != nil {
		return simulation.AgingTerms{}, fmt.Errorf("aging expected date: %w", err)
	}
	actual, err := datetime.ParseDate(c.Aging.ActualDate)
	if err != nil {
		return simulation.AgingTerms{}, fmt.Errorf("aging actual date: %w", err)
	}

	return simulation.AgingTerms{
		Capital:      mathutil.FromFloat(c.Aging.Capital),
		PeriodicRate: decimal.NewFromFloat(c.Aging.PeriodicRate),
		ExpectedDate: expected,
		ActualDate:   actual,
	}, nil
}

// Payment converts an override into a payment decision.
func (o PaymentOverride) Payment() (simulation.Payment, error) {
	if o.Missed {
		return simulation.Missed(), nil
	}
	amount := mathutil.FromFloat(o.Amount)
	if o.PaidOn == "" {
		return simulation.Paid(amount), nil
	}
	paidOn, err := datetime.ParseDate(o.PaidOn)
	if err != nil {
		return simulation.Payment{}, fmt.Errorf("payment override for month %d: %w", o.Month, err)
	}
	return simulation.PaidOn(amount, paidOn), nil
}

// PaymentPlan builds the scripted payment source for schedule. When a month
// is overridden more than once the last override wins.
func (c *Configuration) PaymentPlan(schedule []loans.ScheduleEntry) (*simulation.PlanSource, error) {
	overrides := make(map[int]simulation.Payment, len(c.Payments.Overrides))
	for _, override := range c.Payments.Overrides {
		payment, err := override.Payment()
		if err != nil {
			return nil, err
		}
		overrides[override.Month] = payment
	}
	return simulation.NewPlanSource(c.Payments.Fallback, schedule, overrides)
}
