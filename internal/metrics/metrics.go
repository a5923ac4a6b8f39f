// Package metrics exposes Prometheus counters for simulations served over HTTP.
package metrics

import (
	"errors"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusUnaffordable = "unaffordable"
	StatusLimit        = "month_limit"
)

var (
	// Simulations counts simulation runs by mode and status.
	Simulations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_simulations_total",
			Help: "Total simulation runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	// SimulatedMonths counts ledger rows by outcome.
	SimulatedMonths = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_simulated_months_total",
			Help: "Simulated months by outcome",
		},
		[]string{"outcome"},
	)

	// UnaffordableMonths counts runs stopped by numeric overflow.
	UnaffordableMonths = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_unaffordable_months_total",
			Help: "Simulations stopped because an installment overflowed",
		},
	)

	// SimulationLatency observes how long a run took.
	SimulationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_simulation_duration_seconds",
			Help:    "Simulation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)

// Status classifies the error a simulation ended with.
func Status(err error) string {
	var unaffordable *simulation.UnaffordableMonthError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &unaffordable):
		return StatusUnaffordable
	case errors.Is(err, simulation.ErrMonthLimitExceeded):
		return StatusLimit
	default:
		return StatusError
	}
}

// ObserveSimulation records the result of one run.
func ObserveSimulation(mode string, started time.Time, err error) {
	status := Status(err)
	Simulations.WithLabelValues(mode, status).Inc()
	SimulationLatency.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	if status == StatusUnaffordable {
		UnaffordableMonths.Inc()
	}
}

// LedgerCounter is a simulation.Sink that counts every emitted month by outcome.
type LedgerCounter struct{}

func (LedgerCounter) EmitScheduleRow(loans.ScheduleEntry) error { return nil }

func (LedgerCounter) EmitLedgerRow(row simulation.LedgerRow) error {
	SimulatedMonths.WithLabelValues(string(row.Outcome)).Inc()
	return nil
}

func (LedgerCounter) EmitSettlementSummary(simulation.Summary) error { return nil }
