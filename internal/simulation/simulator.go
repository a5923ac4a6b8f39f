// Package simulation runs the month-by-month delinquency engine for a
// fixed-installment loan and the simpler one-shot arrears compounding variant.
//
// Every month the expected installment is re-derived from the current balance
// and the remaining term, so partial payments, overpayments and missed months
// are absorbed by re-amortization instead of diverging from a stale schedule.
package simulation

import (
	"fmt"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/iwvelando/loan-arrears/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy selects how a month without any payment is penalized.
type Policy string

const (
	// PolicyInterestOnly capitalizes only the interest accrued in the missed
	// month.
	PolicyInterestOnly Policy = constants.PolicyInterestOnly

	// PolicyFullInstallment capitalizes the whole missed installment.
	PolicyFullInstallment Policy = constants.PolicyFullInstallment
)

// ParsePolicy converts a configured policy name; empty selects
// PolicyInterestOnly.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyInterestOnly:
		return PolicyInterestOnly, nil
	case PolicyFullInstallment:
		return PolicyFullInstallment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Outcome classifies what a month's payment decision did to the balance.
type Outcome string

const (
	OutcomeDefault        Outcome = "default"
	OutcomeCapitalization Outcome = "capitalization"
	OutcomeAmortization   Outcome = "amortization"
)

// Terms holds the loan parameters. They are immutable once a Simulator is
// created.
type Terms struct {
	Principal          decimal.Decimal
	PeriodicRate       decimal.Decimal // percent per period
	OriginalTermMonths int
	StartDate          time.Time // the first installment is due one month later
	DefaultPolicy      Policy
	MaxMonths          int // 0 selects constants.DefaultMaxMonths
}

// Validate rejects terms no simulation can be started from.
func (t Terms) Validate() error {
	if !t.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidLoanTerms, t.Principal)
	}
	if t.OriginalTermMonths < 1 {
		return fmt.Errorf("%w: term must be at least 1 month, got %d", ErrInvalidLoanTerms, t.OriginalTermMonths)
	}
	if t.PeriodicRate.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrNegativeRate, t.PeriodicRate)
	}
	if _, err := ParsePolicy(string(t.DefaultPolicy)); err != nil {
		return err
	}
	if t.MaxMonths < 0 {
		return fmt.Errorf("%w: month limit cannot be negative, got %d", ErrInvalidLoanTerms, t.MaxMonths)
	}
	return nil
}

// Payment is one month's payment decision.
type Payment struct {
	Occurred bool
	Amount   decimal.Decimal
	PaidOn   time.Time // optional; when after the due date the month is late
}

// Missed is the decision for a month with no payment at all.
func Missed() Payment {
	return Payment{}
}

// Paid is the decision for a month paid on time.
func Paid(amount decimal.Decimal) Payment {
	return Payment{Occurred: true, Amount: amount}
}

// PaidOn is the decision for a month paid on a specific date.
func PaidOn(amount decimal.Decimal, date time.Time) Payment {
	return Payment{Occurred: true, Amount: amount, PaidOn: date}
}

// Quote describes the upcoming month before a payment decision is made.
type Quote struct {
	MonthIndex          int
	DueDate             time.Time
	RemainingTerm       int
	BalanceBefore       decimal.Decimal
	ExpectedInstallment decimal.Decimal
	InterestAccrued     decimal.Decimal
	PastOriginalTerm    bool
}

// LedgerRow is the audit record of one simulated month.
type LedgerRow struct {
	MonthIndex           int
	DueDate              time.Time
	RemainingTerm        int
	BalanceBefore        decimal.Decimal
	ExpectedInstallment  decimal.Decimal
	InterestAccrued      decimal.Decimal
	AmountPaid           decimal.NullDecimal // invalid on a full default
	PaidOn               time.Time
	CapitalizationAmount decimal.NullDecimal
	AmortizationAmount   decimal.NullDecimal
	ExtraPrincipal       decimal.NullDecimal // paid beyond the expected installment
	Surplus              decimal.NullDecimal // paid beyond what settles the balance
	BalanceAfter         decimal.Decimal
	Outcome              Outcome
	WasLate              bool
	PastOriginalTerm     bool
}

// State is the mutable part of a running simulation.
type State struct {
	Balance        decimal.Decimal
	CurrentDueDate time.Time
	MonthsElapsed  int
	Terminated     bool
}

// Summary is the settlement report of a simulation.
type Summary struct {
	Principal           decimal.Decimal
	FinalBalance        decimal.Decimal
	TotalMonthsToPayoff int
	OriginalTermMonths  int
	MonthsPastTerm      int
	LateMonths          int
	MissedMonths        int
	TotalPaid           decimal.Decimal
	TotalInterest       decimal.Decimal
	TotalCapitalized    decimal.Decimal
	Terminated          bool
}

// Simulator owns one loan's simulation state. It is not safe for concurrent
// use; independent simulators share nothing.
type Simulator struct {
	logger   *zap.Logger
	terms    Terms
	state    State
	schedule []loans.ScheduleEntry
	ledger   []LedgerRow
}

// New validates the terms, generates the original schedule and returns a
// simulator positioned before month 1.
func New(logger *zap.Logger, terms Terms) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	terms.DefaultPolicy, _ = ParsePolicy(string(terms.DefaultPolicy))
	if terms.MaxMonths == 0 {
		terms.MaxMonths = constants.DefaultMaxMonths
	}

	schedule, err := loans.NewScheduleGenerator(logger).GenerateSchedule(loans.Plan{
		Principal:    terms.Principal,
		PeriodicRate: terms.PeriodicRate,
		TermMonths:   terms.OriginalTermMonths,
		StartDate:    terms.StartDate,
	})
	if err != nil {
		return nil, &UnaffordableMonthError{MonthIndex: 1, Err: err}
	}

	return &Simulator{
		logger:   logger,
		terms:    terms,
		schedule: schedule,
		state: State{
			Balance:        terms.Principal,
			CurrentDueDate: terms.StartDate,
		},
	}, nil
}

// Terms returns the normalized terms the simulator runs with.
func (s *Simulator) Terms() Terms {
	return s.terms
}

// Schedule returns a copy of the original schedule.
func (s *Simulator) Schedule() []loans.ScheduleEntry {
	return append([]loans.ScheduleEntry(nil), s.schedule...)
}

// Ledger returns a copy of the rows recorded so far.
func (s *Simulator) Ledger() []LedgerRow {
	return append([]LedgerRow(nil), s.ledger...)
}

// State returns a snapshot of the current state.
func (s *Simulator) State() State {
	return s.state
}

// Terminated reports whether the balance has been settled.
func (s *Simulator) Terminated() bool {
	return s.state.Terminated
}

// remainingTerm is the number of months the balance is re-amortized over.
// Past the original term it is forced to 1, so the expected installment is a
// payoff in one period.
func (s *Simulator) remainingTerm(month int) int {
	if month <= s.terms.OriginalTermMonths {
		return s.terms.OriginalTermMonths - month + 1
	}
	return 1
}

// Next quotes the upcoming month without changing any state.
func (s *Simulator) Next() (Quote, error) {
	if s.state.Terminated {
		return Quote{}, ErrTerminated
	}

	month := s.state.MonthsElapsed + 1
	remaining := s.remainingTerm(month)
	expected, err := loans.ComputeInstallment(s.state.Balance, s.terms.PeriodicRate, remaining)
	if err != nil {
		return Quote{}, &UnaffordableMonthError{MonthIndex: month, Err: err}
	}

	return Quote{
		MonthIndex:          month,
		DueDate:             datetime.AddOneMonth(s.state.CurrentDueDate),
		RemainingTerm:       remaining,
		BalanceBefore:       s.state.Balance,
		ExpectedInstallment: expected,
		InterestAccrued:     loans.PeriodInterest(s.state.Balance, s.terms.PeriodicRate),
		PastOriginalTerm:    month > s.terms.OriginalTermMonths,
	}, nil
}

// Step applies one month's payment decision, appends its ledger row and
// returns it. A negative amount is treated as zero. On error the state is left
// untouched.
func (s *Simulator) Step(payment Payment) (LedgerRow, error) {
	quote, err := s.Next()
	if err != nil {
		s.logger.Warn("refusing to advance simulation",
			zap.String("op", "simulation.Step"),
			zap.Int("month", s.state.MonthsElapsed+1),
			zap.Error(err),
		)
		return LedgerRow{}, err
	}

	row := LedgerRow{
		MonthIndex:          quote.MonthIndex,
		DueDate:             quote.DueDate,
		RemainingTerm:       quote.RemainingTerm,
		BalanceBefore:       quote.BalanceBefore,
		ExpectedInstallment: quote.ExpectedInstallment,
		InterestAccrued:     quote.InterestAccrued,
		PastOriginalTerm:    quote.PastOriginalTerm,
	}
	balance := quote.BalanceBefore

	if !payment.Occurred {
		penalty := quote.InterestAccrued
		if s.terms.DefaultPolicy == PolicyFullInstallment {
			penalty = quote.ExpectedInstallment
		}
		balance = balance.Add(penalty)
		row.Outcome = OutcomeDefault
		row.CapitalizationAmount = decimal.NewNullDecimal(penalty)
		row.WasLate = true
	} else {
		amount := mathutil.ClampZero(mathutil.Round(payment.Amount))
		row.AmountPaid = decimal.NewNullDecimal(amount)
		row.PaidOn = payment.PaidOn
		row.WasLate = !payment.PaidOn.IsZero() && datetime.DateBeforeDate(quote.DueDate, payment.PaidOn)

		if amount.LessThan(quote.InterestAccrued) {
			shortfall := quote.InterestAccrued.Sub(amount)
			balance = balance.Add(shortfall)
			row.Outcome = OutcomeCapitalization
			row.CapitalizationAmount = decimal.NewNullDecimal(shortfall)
		} else {
			amortization := amount.Sub(quote.InterestAccrued)
			row.Outcome = OutcomeAmortization
			row.AmortizationAmount = decimal.NewNullDecimal(amortization)
			if amount.GreaterThan(quote.ExpectedInstallment) {
				row.ExtraPrincipal = decimal.NewNullDecimal(amount.Sub(quote.ExpectedInstallment))
			}
			if amortization.GreaterThan(balance) {
				row.Surplus = decimal.NewNullDecimal(amortization.Sub(balance))
			}
			balance = balance.Sub(amortization)
		}
	}

	balance = mathutil.ClampZero(balance)
	row.BalanceAfter = balance

	s.state.Balance = balance
	s.state.CurrentDueDate = quote.DueDate
	s.state.MonthsElapsed = quote.MonthIndex
	s.state.Terminated = balance.IsZero()
	s.ledger = append(s.ledger, row)

	s.logger.Debug("month processed",
		zap.String("op", "simulation.Step"),
		zap.Int("month", row.MonthIndex),
		zap.String("outcome", string(row.Outcome)),
		zap.String("due", datetime.FormatDate(row.DueDate)),
		zap.String("balance_before", row.BalanceBefore.StringFixed(2)),
		zap.String("expected", row.ExpectedInstallment.StringFixed(2)),
		zap.String("balance_after", row.BalanceAfter.StringFixed(2)),
		zap.Bool("late", row.WasLate),
	)

	return row, nil
}

// Summary reports the settlement figures for the months simulated so far.
func (s *Simulator) Summary() Summary {
	summary := Summary{
		Principal:           s.terms.Principal,
		FinalBalance:        s.state.Balance,
		TotalMonthsToPayoff: s.state.MonthsElapsed,
		OriginalTermMonths:  s.terms.OriginalTermMonths,
		TotalPaid:           decimal.Zero,
		TotalInterest:       decimal.Zero,
		TotalCapitalized:    decimal.Zero,
		Terminated:          s.state.Terminated,
	}
	if over := s.state.MonthsElapsed - s.terms.OriginalTermMonths; over > 0 {
		summary.MonthsPastTerm = over
	}

	for _, row := range s.ledger {
		summary.TotalInterest = summary.TotalInterest.Add(row.InterestAccrued)
		if row.AmountPaid.Valid {
			summary.TotalPaid = summary.TotalPaid.Add(row.AmountPaid.Decimal)
		} else {
			summary.MissedMonths++
		}
		if row.CapitalizationAmount.Valid {
			summary.TotalCapitalized = summary.TotalCapitalized.Add(row.CapitalizationAmount.Decimal)
		}
		if row.WasLate {
			summary.LateMonths++
		}
	}
	return summary
}
