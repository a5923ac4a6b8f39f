// Package config defines the data structures related to configuration and
// includes functions for loading, parsing and validating the config.
package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/validation"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variables overriding config keys,
// e.g. LOAN_ARREARS_LOAN_PRINCIPAL.
const EnvPrefix = "LOAN_ARREARS"

// Configuration holds all configuration for loan-arrears.
type Configuration struct {
	Mode     string         `yaml:"mode,omitempty" json:"mode,omitempty"` // monthly, aging
	Logging  LoggingConfig  `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty" json:"output,omitempty"`
	Loan     LoanConfig     `yaml:"loan,omitempty" json:"loan,omitempty"`
	Payments PaymentsConfig `yaml:"payments,omitempty" json:"payments,omitempty"`
	Aging    AgingConfig    `yaml:"aging,omitempty" json:"aging,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format   string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv
	PDFFile  string `yaml:"pdfFile,omitempty" json:"pdfFile,omitempty"`
	XLSXFile string `yaml:"xlsxFile,omitempty" json:"xlsxFile,omitempty"`
}

// LoanConfig describes the loan being simulated month by month.
type LoanConfig struct {
	Principal     float64 `yaml:"principal" json:"principal"`
	PeriodicRate  float64 `yaml:"periodicRate" json:"periodicRate"` // percent per month
	TermMonths    int     `yaml:"termMonths" json:"termMonths"`
	StartDate     string  `yaml:"startDate" json:"startDate"`
	DefaultPolicy string  `yaml:"defaultPolicy,omitempty" json:"defaultPolicy,omitempty"` // interest-only, full-installment
	MaxMonths     int     `yaml:"maxMonths,omitempty" json:"maxMonths,omitempty"`
}

// PaymentsConfig scripts the monthly payment decisions for a non-interactive run.
type PaymentsConfig struct {
	Fallback  string            `yaml:"fallback,omitempty" json:"fallback,omitempty"` // expected, scheduled, missed
	Overrides []PaymentOverride `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// PaymentOverride replaces the fallback decision for one month.
type PaymentOverride struct {
	Month  int     `yaml:"month" json:"month"`
	Amount float64 `yaml:"amount,omitempty" json:"amount,omitempty"`
	Missed bool    `yaml:"missed,omitempty" json:"missed,omitempty"`
	PaidOn string  `yaml:"paidOn,omitempty" json:"paidOn,omitempty"`
}

// AgingConfig describes a single overdue payment for the one-shot arrears assessment.
type AgingConfig struct {
	Capital      float64 `yaml:"capital" json:"capital"`
	PeriodicRate float64 `yaml:"periodicRate" json:"periodicRate"`
	ExpectedDate string  `yaml:"expectedDate" json:"expectedDate"`
	ActualDate   string  `yaml:"actualDate" json:"actualDate"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

// timeToDateHook turns the time.Time the YAML parser produces for an unquoted
// ISO date back into the date string the config fields hold.
func timeToDateHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if t, ok := data.(time.Time); ok && from == reflect.TypeOf(time.Time{}) {
		return datetime.FormatDate(t), nil
	}
	return data, nil
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	err := v.Unmarshal(&configuration, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		timeToDateHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.applyDefaults()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Configuration) applyDefaults() {
	if c.Mode == "" {
		c.Mode = constants.ModeMonthly
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	if c.Loan.MaxMonths == 0 {
		c.Loan.MaxMonths = constants.DefaultMaxMonths
	}
	if c.Payments.Fallback == "" {
		c.Payments.Fallback = constants.FallbackExpected
	}
}

// Validate rejects configurations whose selectors name unsupported values.
// Loan terms themselves are validated when the simulation is created.
func (c *Configuration) Validate() error {
	if err := validation.ValidateMode(c.Mode); err != nil {
		return err
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	switch c.Payments.Fallback {
	case constants.FallbackExpected, constants.FallbackScheduled, constants.FallbackMissed:
	default:
		return fmt.Errorf("expected payment fallback of %s, %s or %s, got %s",
			constants.FallbackExpected, constants.FallbackScheduled, constants.FallbackMissed, c.Payments.Fallback)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	if c.Mode == constants.ModeAging {
		return nil
	}

	validator := validation.ConfigValidator{
		TermMonths: c.Loan.TermMonths,
		MaxMonths:  c.Loan.MaxMonths,
	}
	if start, err := datetime.ParseDate(c.Loan.StartDate); err == nil {
		validator.StartDate = start
	}
	for _, override := range c.Payments.Overrides {
		validator.Overrides = append(validator.Overrides, validation.OverrideConfig{
			Month:  override.Month,
			Amount: override.Amount,
			Missed: override.Missed,
			PaidOn: override.PaidOn,
		})
	}

	warnings, err := validator.ValidateAll()
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings
}
