// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/datetime"
)

// OverrideConfig is the subset of a payment override that validation inspects.
type OverrideConfig struct {
	Month  int
	Amount float64
	Missed bool
	PaidOn string
}

// ConfigValidator collects non-fatal warnings about a loan configuration.
type ConfigValidator struct {
	TermMonths int
	MaxMonths  int
	StartDate  time.Time
	Overrides  []OverrideConfig
}

// ValidateOverrideMonth checks that an override targets a month the simulation can reach.
func ValidateOverrideMonth(month, maxMonths int) string {
	if month < 1 {
		return fmt.Sprintf("Payment override for month %d is ignored: months start at 1", month)
	}
	if maxMonths > 0 && month > maxMonths {
		return fmt.Sprintf("Payment override for month %d is beyond the month limit of %d", month, maxMonths)
	}
	return ""
}

// ValidatePaidOn checks that a payment date parses and is not before the loan start.
func ValidatePaidOn(month int, paidOn string, start time.Time) (string, error) {
	if paidOn == "" {
		return "", nil
	}
	date, err := datetime.ParseDate(paidOn)
	if err != nil {
		return "", fmt.Errorf("payment override for month %d: %w", month, err)
	}
	if !start.IsZero() && datetime.DateBeforeDate(date, start) {
		return fmt.Sprintf("Payment override for month %d is paid on %s, before the loan start %s",
			month, paidOn, datetime.FormatDate(start)), nil
	}
	return "", nil
}

// ValidateAll validates the overrides and limits and returns warnings
func (cv *ConfigValidator) ValidateAll() ([]string, error) {
	var warnings []string

	if cv.MaxMonths > 0 && cv.TermMonths > cv.MaxMonths {
		warnings = append(warnings, fmt.Sprintf("Loan term of %d months exceeds the month limit of %d",
			cv.TermMonths, cv.MaxMonths))
	}

	seen := make(map[int]int)
	for _, override := range cv.Overrides {
		seen[override.Month]++
		if warning := ValidateOverrideMonth(override.Month, cv.MaxMonths); warning != "" {
			warnings = append(warnings, warning)
		}
		if override.Missed && override.Amount != 0 {
			warnings = append(warnings, fmt.Sprintf("Payment override for month %d is marked missed; amount %.2f is ignored",
				override.Month, override.Amount))
		}
		if override.Amount < 0 {
			warnings = append(warnings, fmt.Sprintf("Payment override for month %d has a negative amount; it is treated as 0",
				override.Month))
		}
		warning, err := ValidatePaidOn(override.Month, override.PaidOn, cv.StartDate)
		if err != nil {
			return warnings, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	var duplicates []int
	for month, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, month)
		}
	}
	sort.Ints(duplicates)
	for _, month := range duplicates {
		warnings = append(warnings, fmt.Sprintf("Payment override for month %d is defined %d times; the last one wins",
			month, seen[month]))
	}

	return warnings, nil
}
