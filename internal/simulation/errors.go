package simulation

import (
	"errors"
	"fmt"

	"github.com/iwvelando/loan-arrears/pkg/loans"
)

var (
	// ErrInvalidLoanTerms rejects a non-positive principal or term.
	ErrInvalidLoanTerms = errors.New("invalid loan terms")

	// ErrNegativeRate rejects a periodic rate below zero.
	ErrNegativeRate = errors.New("periodic rate cannot be negative")

	// ErrUnknownPolicy rejects a missed-payment policy that is not supported.
	ErrUnknownPolicy = errors.New("unknown missed-payment policy")

	// ErrTerminated is returned when stepping a simulation whose balance is
	// already settled.
	ErrTerminated = errors.New("simulation already terminated")

	// ErrMonthLimitExceeded is returned by Run when the balance is still
	// outstanding after the configured maximum number of months.
	ErrMonthLimitExceeded = errors.New("month limit exceeded before payoff")

	// ErrNumericOverflow is re-exported so callers of the engine do not need
	// to import the loans package to recognize an unaffordable month.
	ErrNumericOverflow = loans.ErrNumericOverflow
)

// UnaffordableMonthError reports a month whose expected installment cannot be
// computed. The simulation refuses to advance past it until the terms are
// restructured.
type UnaffordableMonthError struct {
	MonthIndex int
	Err        error
}

func (e *UnaffordableMonthError) Error() string {
	return fmt.Sprintf("month %d: installment is unaffordable or undefined: %v", e.MonthIndex, e.Err)
}

func (e *UnaffordableMonthError) Unwrap() error {
	return e.Err
}
