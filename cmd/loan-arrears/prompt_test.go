package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testQuote() simulation.Quote {
	return simulation.Quote{
		MonthIndex:          1,
		DueDate:             datetime.MustParseDate("2024-02-29"),
		BalanceBefore:       decimal.NewFromInt(10000),
		InterestAccrued:     decimal.NewFromInt(200),
		ExpectedInstallment: decimal.RequireFromString("945.60"),
	}
}

func TestPromptSource(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		occurred bool
		amount   string
		paidOn   string
		notice   string
	}{
		{"Blank is missed", "\n", false, "0", "", ""},
		{"Plain amount on time", "945.60\n\n", true, "945.60", "", ""},
		{"Currency formatted", "$1,200.50\n\n", true, "1200.50", "", ""},
		{"Re-prompts malformed amount", "abc\n100\n\n", true, "100", "", "is not an amount"},
		{"Negative clamps to zero", "-5\n\n", true, "0", "", "treated as 0"},
		{"Late payment date", "945.60\n2024-03-10\n", true, "945.60", "2024-03-10", ""},
		{"Re-prompts malformed date", "945.60\n10/03/2024\n2024-03-10\n", true, "945.60", "2024-03-10", "malformed date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			source := newPromptSource(strings.NewReader(tt.input), &out)

			payment, err := source.RequestMonthlyPayment(context.Background(), testQuote())
			if err != nil {
				t.Fatalf("RequestMonthlyPayment() error = %v", err)
			}
			if payment.Occurred != tt.occurred {
				t.Errorf("Occurred = %v, expected %v", payment.Occurred, tt.occurred)
			}
			if tt.occurred && !payment.Amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Amount = %s, expected %s", payment.Amount, tt.amount)
			}
			if got := datetime.FormatDate(payment.PaidOn); got != tt.paidOn {
				t.Errorf("PaidOn = %q, expected %q", got, tt.paidOn)
			}
			if tt.notice != "" && !strings.Contains(out.String(), tt.notice) {
				t.Errorf("expected prompt output to mention %q, got %q", tt.notice, out.String())
			}
			if !strings.Contains(out.String(), "$945.60") {
				t.Errorf("prompt should show the expected installment")
			}
		})
	}
}

func TestPromptSourceInputClosed(t *testing.T) {
	source := newPromptSource(strings.NewReader("abc\n"), &bytes.Buffer{})
	_, err := source.RequestMonthlyPayment(context.Background(), testQuote())
	if !errors.Is(err, errInputClosed) {
		t.Fatalf("RequestMonthlyPayment() error = %v, expected errInputClosed", err)
	}
}

func TestPromptSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := newPromptSource(strings.NewReader("100\n\n"), &bytes.Buffer{})
	if _, err := source.RequestMonthlyPayment(ctx, testQuote()); !errors.Is(err, context.Canceled) {
		t.Fatalf("RequestMonthlyPayment() error = %v, expected context.Canceled", err)
	}
}

func TestPromptSourceDrivesSimulation(t *testing.T) {
	sim, err := simulation.New(zap.NewNop(), simulation.Terms{
		Principal:          decimal.NewFromInt(1000),
		PeriodicRate:       decimal.NewFromInt(2),
		OriginalTermMonths: 1,
		StartDate:          datetime.MustParseDate("2024-01-15"),
	})
	if err != nil {
		t.Fatalf("simulation.New() error = %v", err)
	}

	var out bytes.Buffer
	source := newPromptSource(strings.NewReader("\n1040.40\n\n"), &out)
	summary, err := sim.Run(context.Background(), source, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalMonthsToPayoff != 2 || summary.MissedMonths != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(out.String(), "original term has ended") {
		t.Errorf("the second month is past the term and should say so")
	}
}

func TestAskDate(t *testing.T) {
	var out bytes.Buffer
	source := newPromptSource(strings.NewReader("tomorrow\n2024-04-20\n"), &out)
	date, err := source.askDate(context.Background(), "Actual payment date: ")
	if err != nil {
		t.Fatalf("askDate() error = %v", err)
	}
	if datetime.FormatDate(date) != "2024-04-20" {
		t.Errorf("askDate() = %s", datetime.FormatDate(date))
	}
	if strings.Count(out.String(), "Actual payment date: ") != 2 {
		t.Errorf("expected a second prompt after malformed input")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"100", "100", false},
		{"$1,234.56", "1234.56", false},
		{" 12.5 ", "12.5", false},
		{"-3", "-3", false},
		{"ten", "", true},
		{"1.2.3", "", true},
	}

	for _, tt := range tests {
		got, err := parseAmount(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.expected)) {
			t.Errorf("parseAmount(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}
