// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/shopspring/decimal"
)

// FindLedgerRow finds a ledger row by month index.
// Returns a pointer to the row if found, nil otherwise.
func FindLedgerRow(rows []simulation.LedgerRow, month int) *simulation.LedgerRow {
	for i := range rows {
		if rows[i].MonthIndex == month {
			return &rows[i]
		}
	}
	return nil
}

// MustDecimal parses a decimal literal or fails the test.
func MustDecimal(t testing.TB, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", value, err)
	}
	return d
}

// AssertDecimal reports an error when got does not equal the decimal literal expected.
func AssertDecimal(t testing.TB, label string, got decimal.Decimal, expected string) {
	t.Helper()
	if !got.Equal(MustDecimal(t, expected)) {
		t.Errorf("%s = %s, expected %s", label, got.StringFixed(2), expected)
	}
}
