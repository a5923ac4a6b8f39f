package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"go.uber.org/zap"
)

// PaymentSource supplies one month's payment decision. Implementations may
// block (e.g. waiting on a prompt); the simulation does not advance until the
// call returns.
type PaymentSource interface {
	RequestMonthlyPayment(ctx context.Context, quote Quote) (Payment, error)
}

// PaymentSourceFunc adapts a function to PaymentSource.
type PaymentSourceFunc func(ctx context.Context, quote Quote) (Payment, error)

// RequestMonthlyPayment calls f.
func (f PaymentSourceFunc) RequestMonthlyPayment(ctx context.Context, quote Quote) (Payment, error) {
	return f(ctx, quote)
}

// Sink consumes the rows a simulation produces. Table display, CSV, PDF and
// XLSX exports all consume the same rows.
type Sink interface {
	EmitScheduleRow(entry loans.ScheduleEntry) error
	EmitLedgerRow(row LedgerRow) error
	EmitSettlementSummary(summary Summary) error
}

// Run drives the simulation until the balance is settled. The original
// schedule is emitted first when no month has been simulated yet, then each
// month is quoted, decided by source, stepped and emitted, and finally the
// settlement summary is emitted. A run stopped by the month limit still emits
// its partial, unsettled summary. Cancellation is honored between months.
func (s *Simulator) Run(ctx context.Context, source PaymentSource, sink Sink) (Summary, error) {
	if source == nil {
		return s.Summary(), errors.New("payment source is required")
	}
	if sink == nil {
		sink = discard{}
	}

	if s.state.MonthsElapsed == 0 {
		for _, entry := range s.schedule {
			if err := sink.EmitScheduleRow(entry); err != nil {
				return s.Summary(), fmt.Errorf("failed to emit schedule row %d: %w", entry.MonthIndex, err)
			}
		}
	}

	for !s.state.Terminated {
		if err := ctx.Err(); err != nil {
			return s.Summary(), err
		}
		if s.state.MonthsElapsed >= s.terms.MaxMonths {
			s.logger.Warn("simulation abandoned before payoff",
				zap.String("op", "simulation.Run"),
				zap.Int("months", s.state.MonthsElapsed),
				zap.String("balance", s.state.Balance.StringFixed(2)),
			)
			summary := s.Summary()
			if err := sink.EmitSettlementSummary(summary); err != nil {
				return summary, fmt.Errorf("failed to emit settlement summary: %w", err)
			}
			return summary, fmt.Errorf("%w: %d months", ErrMonthLimitExceeded, s.terms.MaxMonths)
		}

		quote, err := s.Next()
		if err != nil {
			return s.Summary(), err
		}

		payment, err := source.RequestMonthlyPayment(ctx, quote)
		if err != nil {
			return s.Summary(), fmt.Errorf("failed to obtain payment for month %d: %w", quote.MonthIndex, err)
		}

		row, err := s.Step(payment)
		if err != nil {
			return s.Summary(), err
		}
		if err := sink.EmitLedgerRow(row); err != nil {
			return s.Summary(), fmt.Errorf("failed to emit ledger row %d: %w", row.MonthIndex, err)
		}
	}

	summary := s.Summary()
	if err := sink.EmitSettlementSummary(summary); err != nil {
		return summary, fmt.Errorf("failed to emit settlement summary: %w", err)
	}

	s.logger.Info("loan settled",
		zap.String("op", "simulation.Run"),
		zap.Int("months", summary.TotalMonthsToPayoff),
		zap.Int("months_past_term", summary.MonthsPastTerm),
		zap.String("total_paid", summary.TotalPaid.StringFixed(2)),
	)
	return summary, nil
}

type discard struct{}

func (discard) EmitScheduleRow(loans.ScheduleEntry) error { return nil }
func (discard) EmitLedgerRow(LedgerRow) error             { return nil }
func (discard) EmitSettlementSummary(Summary) error       { return nil }

// Recorder is a Sink that keeps everything it is given.
type Recorder struct {
	Schedule []loans.ScheduleEntry
	Ledger   []LedgerRow
	Summary  *Summary
}

func (r *Recorder) EmitScheduleRow(entry loans.ScheduleEntry) error {
	r.Schedule = append(r.Schedule, entry)
	return nil
}

func (r *Recorder) EmitLedgerRow(row LedgerRow) error {
	r.Ledger = append(r.Ledger, row)
	return nil
}

func (r *Recorder) EmitSettlementSummary(summary Summary) error {
	r.Summary = &summary
	return nil
}

// MultiSink fans every row out to each sink in order, stopping at the first
// error.
type MultiSink []Sink

func (m MultiSink) EmitScheduleRow(entry loans.ScheduleEntry) error {
	for _, sink := range m {
		if err := sink.EmitScheduleRow(entry); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) EmitLedgerRow(row LedgerRow) error {
	for _, sink := range m {
		if err := sink.EmitLedgerRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) EmitSettlementSummary(summary Summary) error {
	for _, sink := range m {
		if err := sink.EmitSettlementSummary(summary); err != nil {
			return err
		}
	}
	return nil
}

// PlanSource is a scripted PaymentSource: months listed in Overrides use that
// decision, every other month follows Fallback.
type PlanSource struct {
	Overrides map[int]Payment
	Fallback  string
	schedule  []loans.ScheduleEntry
}

// NewPlanSource builds a scripted source. The "scheduled" fallback pays the
// original schedule's installment and, once the schedule is exhausted, the
// quoted payoff.
func NewPlanSource(fallback string, schedule []loans.ScheduleEntry, overrides map[int]Payment) (*PlanSource, error) {
	switch fallback {
	case "":
		fallback = constants.FallbackExpected
	case constants.FallbackExpected, constants.FallbackScheduled, constants.FallbackMissed:
	default:
		return nil, fmt.Errorf("unknown payment fallback %q: expected %s, %s or %s", fallback,
			constants.FallbackExpected, constants.FallbackScheduled, constants.FallbackMissed)
	}
	if overrides == nil {
		overrides = make(map[int]Payment)
	}
	return &PlanSource{Overrides: overrides, Fallback: fallback, schedule: schedule}, nil
}

// RequestMonthlyPayment returns the scripted decision for the quoted month.
func (p *PlanSource) RequestMonthlyPayment(_ context.Context, quote Quote) (Payment, error) {
	if payment, ok := p.Overrides[quote.MonthIndex]; ok {
		return payment, nil
	}

	switch p.Fallback {
	case constants.FallbackMissed:
		return Missed(), nil
	case constants.FallbackScheduled:
		if i := quote.MonthIndex - 1; i < len(p.schedule) {
			return PaidOn(p.schedule[i].PlannedInstallment, quote.DueDate), nil
		}
	}
	return PaidOn(quote.ExpectedInstallment, quote.DueDate), nil
}
