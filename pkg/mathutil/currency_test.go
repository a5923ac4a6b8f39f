package mathutil

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Round up at midpoint", "1.235", "1.24"},
		{"Round down below midpoint", "1.234", "1.23"},
		{"No rounding needed", "1.23", "1.23"},
		{"Large number", "12345.678", "12345.68"},
		{"Midpoint at half a cent", "0.005", "0.01"},
		{"Zero", "0", "0"},
		{"Very small positive", "0.001", "0"},
		{"Nearly two cents", "0.019", "0.02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(decimal.RequireFromString(tt.input))
			if !result.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Round(%s) = %s, expected %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClampZero(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Positive unchanged", "12.50", "12.50"},
		{"Zero unchanged", "0", "0"},
		{"Negative clamped", "-0.04", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClampZero(decimal.RequireFromString(tt.input))
			if !result.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ClampZero(%s) = %s, expected %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		percentage string
		expected   string
	}{
		{"Two percent", "10000", "2", "200"},
		{"Fractional percent", "9254.40", "2", "185.09"},
		{"Zero percent", "500", "0", "0"},
		{"Rounds half up", "0.25", "10", "0.03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyPercentage(decimal.RequireFromString(tt.value), decimal.RequireFromString(tt.percentage))
			if !result.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ApplyPercentage(%s, %s) = %s, expected %s", tt.value, tt.percentage, result, tt.expected)
			}
		})
	}
}

func TestFromFloat(t *testing.T) {
	if got := FromFloat(945.6); !got.Equal(decimal.RequireFromString("945.60")) {
		t.Errorf("FromFloat(945.6) = %s, expected 945.60", got)
	}
	if got := FromFloat(0.125); !got.Equal(decimal.RequireFromString("0.13")) {
		t.Errorf("FromFloat(0.125) = %s, expected 0.13", got)
	}
}
