// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/loan-arrears/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateExportFormat checks if the export format is one of the supported document formats.
func ValidateExportFormat(format string) error {
	if format != constants.ExportFormatPDF && format != constants.ExportFormatXLSX {
		return fmt.Errorf("expected export format of %s or %s, got %s",
			constants.ExportFormatPDF, constants.ExportFormatXLSX, format)
	}
	return nil
}

// ValidateMode checks if the simulation mode is supported.
func ValidateMode(mode string) error {
	if mode != constants.ModeMonthly && mode != constants.ModeAging {
		return fmt.Errorf("expected mode of %s or %s, got %s",
			constants.ModeMonthly, constants.ModeAging, mode)
	}
	return nil
}
