package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Success", nil, StatusSuccess},
		{"Unaffordable", &simulation.UnaffordableMonthError{MonthIndex: 3, Err: simulation.ErrNumericOverflow}, StatusUnaffordable},
		{"Wrapped limit", fmt.Errorf("run: %w", simulation.ErrMonthLimitExceeded), StatusLimit},
		{"Other", errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.expected {
				t.Errorf("Status() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestObserveSimulation(t *testing.T) {
	before := testutil.ToFloat64(Simulations.WithLabelValues("monthly", StatusUnaffordable))
	beforeUnaffordable := testutil.ToFloat64(UnaffordableMonths)

	ObserveSimulation("monthly", time.Now(), &simulation.UnaffordableMonthError{MonthIndex: 1, Err: simulation.ErrNumericOverflow})

	if got := testutil.ToFloat64(Simulations.WithLabelValues("monthly", StatusUnaffordable)); got != before+1 {
		t.Errorf("simulations counter = %v, expected %v", got, before+1)
	}
	if got := testutil.ToFloat64(UnaffordableMonths); got != beforeUnaffordable+1 {
		t.Errorf("unaffordable counter = %v, expected %v", got, beforeUnaffordable+1)
	}
}

func TestLedgerCounter(t *testing.T) {
	before := testutil.ToFloat64(SimulatedMonths.WithLabelValues(string(simulation.OutcomeDefault)))

	var counter LedgerCounter
	for i := 0; i < 3; i++ {
		if err := counter.EmitLedgerRow(simulation.LedgerRow{Outcome: simulation.OutcomeDefault}); err != nil {
			t.Fatalf("EmitLedgerRow() error = %v", err)
		}
	}

	if got := testutil.ToFloat64(SimulatedMonths.WithLabelValues(string(simulation.OutcomeDefault))); got != before+3 {
		t.Errorf("simulated months = %v, expected %v", got, before+3)
	}
}
