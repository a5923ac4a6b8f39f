package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/loan-arrears/internal/config"
	"github.com/iwvelando/loan-arrears/internal/logging"
	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/export"
	"github.com/iwvelando/loan-arrears/pkg/output"
	"github.com/iwvelando/loan-arrears/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type options struct {
	outputFormat string
	interactive  bool
	pdfFile      string
	xlsxFile     string
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	modeFlag := flag.String("mode", "", "simulation mode override: monthly, aging")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	interactive := flag.Bool("interactive", false, "prompt for each month's payment instead of using the configured plan")
	pdfFile := flag.String("pdf", "", "write a PDF report to this path (monthly mode)")
	xlsxFile := flag.String("xlsx", "", "write an XLSX workbook to this path (monthly mode)")
	flag.Parse()

	// Environment overrides may come from a .env file next to the config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	opts := options{
		outputFormat: conf.Output.Format,
		interactive:  *interactive,
		pdfFile:      conf.Output.PDFFile,
		xlsxFile:     conf.Output.XLSXFile,
	}
	if *outputFormatFlag != "" {
		opts.outputFormat = *outputFormatFlag
	}
	if *pdfFile != "" {
		opts.pdfFile = *pdfFile
	}
	if *xlsxFile != "" {
		opts.xlsxFile = *xlsxFile
	}

	if *modeFlag != "" {
		if err := validation.ValidateMode(*modeFlag); err != nil {
			logger.Fatal(err.Error(),
				zap.String("op", "main"),
			)
		}
		conf.Mode = *modeFlag
	}

	if err := validation.ValidateOutputFormat(opts.outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch conf.Mode {
	case constants.ModeAging:
		err = runAging(ctx, logger, conf, opts, os.Stdin, os.Stdout)
	default:
		err = runMonthly(ctx, logger, conf, opts, os.Stdin, os.Stdout)
	}
	if err != nil {
		logger.Error("simulation failed",
			zap.String("op", "main"),
			zap.String("mode", conf.Mode),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func runMonthly(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts options, in io.Reader, out io.Writer) error {
	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runMonthly"),
		)
	}

	terms, err := conf.Terms()
	if err != nil {
		return err
	}
	sim, err := simulation.New(logger, terms)
	if err != nil {
		var unaffordable *simulation.UnaffordableMonthError
		if errors.As(err, &unaffordable) {
			return fmt.Errorf("restructure the loan terms: %w", err)
		}
		return err
	}

	var source simulation.PaymentSource
	if opts.interactive {
		source = newPromptSource(in, out)
	} else {
		source, err = conf.PaymentPlan(sim.Schedule())
		if err != nil {
			return err
		}
	}

	var display simulation.Sink
	switch opts.outputFormat {
	case constants.OutputFormatCSV:
		display = output.NewCSVWriter(out)
	default:
		display = output.NewTableWriter(out)
	}
	recorder := &simulation.Recorder{}

	if _, err := sim.Run(ctx, source, simulation.MultiSink{display, recorder}); err != nil {
		return err
	}

	report, err := export.NewReport("", sim.Terms(), recorder)
	if err != nil {
		return err
	}
	return writeReports(logger, opts, func(format string) ([]byte, error) {
		data, _, err := export.Build(format, report)
		return data, err
	})
}

// reportBuilder renders one document format and returns its bytes.
type reportBuilder func(format string) ([]byte, error)

func writeReports(logger *zap.Logger, opts options, build reportBuilder) error {
	targets := []struct {
		format string
		path   string
	}{
		{constants.ExportFormatPDF, opts.pdfFile},
		{constants.ExportFormatXLSX, opts.xlsxFile},
	}

	for _, target := range targets {
		if target.path == "" {
			continue
		}
		data, err := build(target.format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target.path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s report: %w", target.format, err)
		}
		logger.Info("report written",
			zap.String("op", "main.writeReports"),
			zap.String("format", target.format),
			zap.String("path", target.path),
		)
	}
	return nil
}

func runAging(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts options, in io.Reader, out io.Writer) error {
	if opts.interactive && conf.Aging.ActualDate == "" {
		actual, err := newPromptSource(in, out).askDate(ctx, "Actual payment date (YYYY-MM-DD): ")
		if err != nil {
			return err
		}
		conf.Aging.ActualDate = datetime.FormatDate(actual)
	}

	terms, err := conf.AgingTerms()
	if err != nil {
		return err
	}
	result, err := simulation.AssessArrears(logger, terms)
	if err != nil {
		return err
	}

	if opts.outputFormat == constants.OutputFormatCSV {
		err = output.CsvAging(out, result)
	} else {
		err = output.PrettyAging(out, result)
	}
	if err != nil {
		return err
	}

	report := export.NewAgingReport("", terms, result)
	return writeReports(logger, opts, func(format string) ([]byte, error) {
		data, _, err := export.BuildAging(format, report)
		return data, err
	})
}
