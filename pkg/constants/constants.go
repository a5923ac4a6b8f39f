// Package constants provides shared constants for the loan-arrears application.
package constants

// DateLayout is the ISO calendar date format expected in config files, prompts
// and API payloads, and is also the output date format.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// CurrencyDecimalPlaces is the number of decimal places money is rounded to.
	CurrencyDecimalPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100

	// DefaultMaxMonths bounds how long a single simulation may run before it is
	// abandoned as non-terminating.
	DefaultMaxMonths = 600

	// MaxRequestMonths caps the term, month limit and arrears span a single
	// HTTP request may ask for.
	MaxRequestMonths = 1200
)

// Simulation mode constants
const (
	// ModeMonthly runs the month-by-month re-amortizing simulation.
	ModeMonthly = "monthly"

	// ModeAging detects arrears once and compounds interest for the months late.
	ModeAging = "aging"
)

// Missed-payment policy constants
const (
	// PolicyInterestOnly capitalizes only the accrued interest of a missed month.
	PolicyInterestOnly = "interest-only"

	// PolicyFullInstallment capitalizes the entire missed installment.
	PolicyFullInstallment = "full-installment"
)

// Payment plan fallback constants
const (
	// FallbackExpected pays the re-amortized expected installment.
	FallbackExpected = "expected"

	// FallbackScheduled pays the installment from the original schedule.
	FallbackScheduled = "scheduled"

	// FallbackMissed treats every month without an override as a missed payment.
	FallbackMissed = "missed"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Export format constants
const (
	// ExportFormatPDF renders the ledger report as a PDF document.
	ExportFormatPDF = "pdf"

	// ExportFormatXLSX renders the ledger report as an Excel workbook.
	ExportFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
