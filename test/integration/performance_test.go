package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func longTerms() simulation.Terms {
	return simulation.Terms{
		Principal:          decimal.NewFromInt(350000),
		PeriodicRate:       decimal.RequireFromString("0.5"),
		OriginalTermMonths: 360,
		StartDate:          datetime.MustParseDate("2024-01-31"),
		DefaultPolicy:      simulation.PolicyInterestOnly,
	}
}

// TestPerformance runs a thirty-year mortgage with a missed month every year.
func TestPerformance(t *testing.T) {
	overrides := make(map[int]simulation.Payment)
	for month := 12; month <= 360; month += 12 {
		overrides[month] = simulation.Missed()
	}

	start := time.Now()
	sim, err := simulation.New(zap.NewNop(), longTerms())
	if err != nil {
		t.Fatalf("simulation.New() error = %v", err)
	}
	plan, err := simulation.NewPlanSource(constants.FallbackExpected, sim.Schedule(), overrides)
	if err != nil {
		t.Fatalf("NewPlanSource() error = %v", err)
	}
	summary, err := sim.Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	if !summary.Terminated {
		t.Errorf("expected the mortgage to settle")
	}
	if summary.MissedMonths != 30 {
		t.Errorf("expected 30 missed months, got %d", summary.MissedMonths)
	}
	if elapsed > 5*time.Second {
		t.Errorf("simulation took %v, expected under 5s", elapsed)
	}
	t.Logf("%d months simulated in %v", summary.TotalMonthsToPayoff, elapsed)
}

// TestMonthLimit checks that a loan that is never paid is abandoned.
func TestMonthLimit(t *testing.T) {
	terms := longTerms()
	terms.MaxMonths = 480

	sim, err := simulation.New(zap.NewNop(), terms)
	if err != nil {
		t.Fatalf("simulation.New() error = %v", err)
	}
	plan, err := simulation.NewPlanSource(constants.FallbackMissed, sim.Schedule(), nil)
	if err != nil {
		t.Fatalf("NewPlanSource() error = %v", err)
	}

	summary, err := sim.Run(context.Background(), plan, nil)
	if !errors.Is(err, simulation.ErrMonthLimitExceeded) {
		t.Fatalf("expected ErrMonthLimitExceeded, got %v", err)
	}
	if summary.TotalMonthsToPayoff != 480 || summary.Terminated {
		t.Errorf("expected 480 unsettled months, got %d terminated=%v", summary.TotalMonthsToPayoff, summary.Terminated)
	}
}

func BenchmarkMortgageRun(b *testing.B) {
	for i := 0; i < b.N; i++ {
		sim, err := simulation.New(zap.NewNop(), longTerms())
		if err != nil {
			b.Fatal(err)
		}
		plan, err := simulation.NewPlanSource(constants.FallbackExpected, sim.Schedule(), nil)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := sim.Run(context.Background(), plan, nil); err != nil {
			b.Fatal(err)
		}
	}
}
