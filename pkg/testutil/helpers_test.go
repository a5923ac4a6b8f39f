package testutil

import (
	"testing"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/shopspring/decimal"
)

func TestFindLedgerRow(t *testing.T) {
	rows := []simulation.LedgerRow{
		{MonthIndex: 1, BalanceAfter: decimal.NewFromInt(900)},
		{MonthIndex: 2, BalanceAfter: decimal.NewFromInt(800)},
		{MonthIndex: 3, BalanceAfter: decimal.NewFromInt(700)},
	}

	tests := []struct {
		name        string
		month       int
		expectFound bool
		expected    int64
	}{
		{"First month", 1, true, 900},
		{"Last month", 3, true, 700},
		{"Missing month", 4, false, 0},
		{"Zero month", 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := FindLedgerRow(rows, tt.month)
			if (row != nil) != tt.expectFound {
				t.Fatalf("FindLedgerRow(%d) found = %v, expected %v", tt.month, row != nil, tt.expectFound)
			}
			if row != nil && !row.BalanceAfter.Equal(decimal.NewFromInt(tt.expected)) {
				t.Errorf("FindLedgerRow(%d) balance = %s, expected %d", tt.month, row.BalanceAfter, tt.expected)
			}
		})
	}
}

func TestFindLedgerRowReturnsPointerIntoSlice(t *testing.T) {
	rows := []simulation.LedgerRow{{MonthIndex: 1}}
	FindLedgerRow(rows, 1).WasLate = true
	if !rows[0].WasLate {
		t.Errorf("expected FindLedgerRow to return a pointer into the slice")
	}
}

func TestMustDecimal(t *testing.T) {
	if got := MustDecimal(t, "945.60"); !got.Equal(decimal.RequireFromString("945.6")) {
		t.Errorf("MustDecimal = %s", got)
	}
	AssertDecimal(t, "installment", decimal.RequireFromString("945.6"), "945.60")
}
