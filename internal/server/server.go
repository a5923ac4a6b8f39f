// Package server exposes the simulation engine over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/loan-arrears/internal/config"
	"github.com/iwvelando/loan-arrears/internal/metrics"
	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/export"
	"github.com/iwvelando/loan-arrears/pkg/loans"
	"github.com/iwvelando/loan-arrears/pkg/output"
	"github.com/iwvelando/loan-arrears/pkg/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the simulation API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Month-by-month delinquency simulation (JSON payload or YAML upload)
	mux.HandleFunc("/api/simulate", h.handleSimulate)

	// One-shot arrears compounding
	mux.HandleFunc("/api/aging", h.handleAging)

	// PDF/XLSX report download, ?mode=aging for the arrears assessment
	mux.HandleFunc("/api/export", h.handleExport)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

type simulateResponse struct {
	Schedule   []scheduleRow `json:"schedule"`
	Ledger     []ledgerRow   `json:"ledger"`
	Summary    summaryBody   `json:"summary"`
	CSV        string        `json:"csv"`
	Warnings   []string      `json:"warnings,omitempty"`
	Duration   string        `json:"duration"`
	ConfigYAML string        `json:"configYaml,omitempty"`
}

type scheduleRow struct {
	Month       int    `json:"month"`
	DueDate     string `json:"dueDate"`
	Installment string `json:"installment"`
	Interest    string `json:"interest"`
	Principal   string `json:"principal"`
	Remaining   string `json:"remaining"`
}

type ledgerRow struct {
	Month            int     `json:"month"`
	DueDate          string  `json:"dueDate"`
	RemainingTerm    int     `json:"remainingTerm"`
	BalanceBefore    string  `json:"balanceBefore"`
	Expected         string  `json:"expected"`
	Interest         string  `json:"interest"`
	AmountPaid       *string `json:"amountPaid,omitempty"`
	PaidOn           string  `json:"paidOn,omitempty"`
	Capitalized      *string `json:"capitalized,omitempty"`
	Amortized        *string `json:"amortized,omitempty"`
	ExtraPrincipal   *string `json:"extraPrincipal,omitempty"`
	Surplus          *string `json:"surplus,omitempty"`
	BalanceAfter     string  `json:"balanceAfter"`
	Outcome          string  `json:"outcome"`
	Late             bool    `json:"late"`
	PastOriginalTerm bool    `json:"pastOriginalTerm"`
}

type summaryBody struct {
	Principal           string `json:"principal"`
	FinalBalance        string `json:"finalBalance"`
	TotalMonthsToPayoff int    `json:"totalMonthsToPayoff"`
	OriginalTermMonths  int    `json:"originalTermMonths"`
	MonthsPastTerm      int    `json:"monthsPastTerm"`
	LateMonths          int    `json:"lateMonths"`
	MissedMonths        int    `json:"missedMonths"`
	TotalPaid           string `json:"totalPaid"`
	TotalInterest       string `json:"totalInterest"`
	TotalCapitalized    string `json:"totalCapitalized"`
	Terminated          bool   `json:"terminated"`
}

type agingResponse struct {
	MonthsLate     int             `json:"monthsLate"`
	OnTime         bool            `json:"onTime"`
	InitialCapital string          `json:"initialCapital"`
	FinalCapital   string          `json:"finalCapital"`
	Rows           []compoundedRow `json:"rows"`
	CSV            string          `json:"csv"`
	Duration       string          `json:"duration"`
}

type compoundedRow struct {
	Month         int    `json:"month"`
	CapitalBefore string `json:"capitalBefore"`
	Interest      string `json:"interest"`
	CapitalAfter  string `json:"capitalAfter"`
}

// run holds everything a finished monthly simulation produced.
type run struct {
	cfg      *config.Configuration
	terms    simulation.Terms
	recorder *simulation.Recorder
	csv      bytes.Buffer
	warnings []string
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readConfig(w, r, op)
	if !ok {
		return
	}

	result, status, err := h.simulate(r, configBytes)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	response := simulateResponse{
		Schedule:   buildSchedule(result.recorder.Schedule),
		Ledger:     buildLedger(result.recorder.Ledger),
		Summary:    buildSummary(*result.recorder.Summary),
		CSV:        result.csv.String(),
		Warnings:   result.warnings,
		Duration:   elapsed.String(),
		ConfigYAML: string(configBytes),
	}

	h.logger.Info("simulation computed",
		zap.String("op", op),
		zap.Int("months", response.Summary.TotalMonthsToPayoff),
		zap.Int("warnings", len(response.Warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = constants.ExportFormatPDF
	}
	if err := validation.ValidateExportFormat(format); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = constants.ModeMonthly
	}
	if err := validation.ValidateMode(mode); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	configBytes, ok := h.readConfig(w, r, op)
	if !ok {
		return
	}

	var (
		data        []byte
		contentType string
		fileName    string
	)
	if mode == constants.ModeAging {
		terms, result, err := h.assess(configBytes, time.Now())
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		report := export.NewAgingReport("", terms, result)
		data, contentType, err = export.BuildAging(format, report)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		fileName = export.AgingFileName(format, report.Generated)
	} else {
		result, status, err := h.simulate(r, configBytes)
		if err != nil {
			h.respondErrorWithOp(w, status, err.Error(), op)
			return
		}
		report, err := export.NewReport("", result.terms, result.recorder)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		data, contentType, err = export.Build(format, report)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		fileName = export.FileName(format, report.Generated)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleAging(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAging"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	configBytes, ok := h.readConfig(w, r, op)
	if !ok {
		return
	}

	_, result, err := h.assess(configBytes, start)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	var csvBuf bytes.Buffer
	if err := output.CsvAging(&csvBuf, result); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	rows := make([]compoundedRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, compoundedRow{
			Month:         row.Month,
			CapitalBefore: money(row.CapitalBefore),
			Interest:      money(row.Interest),
			CapitalAfter:  money(row.CapitalAfter),
		})
	}

	h.writeJSON(w, http.StatusOK, agingResponse{
		MonthsLate:     result.MonthsLate,
		OnTime:         result.OnTime(),
		InitialCapital: money(result.InitialCapital),
		FinalCapital:   money(result.FinalCapital),
		Rows:           rows,
		CSV:            csvBuf.String(),
		Duration:       time.Since(start).String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// readConfig extracts a YAML configuration from either a multipart upload
// ("file" field) or a JSON body, which may wrap the configuration in a
// "config" object. It writes the error response itself and reports whether
// the request can proceed.
func (h *handler) readConfig(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.readUpload(w, r, op)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if isTooLarge(err) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return nil, false
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", op)
			return nil, false
		}
		configPayload = cfgMap
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return nil, false
	}
	return configBytes, true
}

func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if isTooLarge(err) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return nil, false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return nil, false
	}
	return buf.Bytes(), true
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// assess runs a one-shot arrears assessment from a configuration's aging
// section. Every failure is a client error.
func (h *handler) assess(configBytes []byte, start time.Time) (simulation.AgingTerms, simulation.AgingResult, error) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		return simulation.AgingTerms{}, simulation.AgingResult{}, err
	}
	terms, err := cfg.AgingTerms()
	if err != nil {
		return simulation.AgingTerms{}, simulation.AgingResult{}, err
	}
	if err := checkMonthCeiling("aging arrears", datetime.MonthsLate(terms.ExpectedDate, terms.ActualDate)); err != nil {
		return simulation.AgingTerms{}, simulation.AgingResult{}, err
	}

	result, err := simulation.AssessArrears(h.logger, terms)
	metrics.ObserveSimulation(constants.ModeAging, start, err)
	if err != nil {
		return simulation.AgingTerms{}, simulation.AgingResult{}, err
	}
	return terms, result, nil
}

// simulate runs a scripted monthly simulation and returns the HTTP status to
// report on failure.
func (h *handler) simulate(r *http.Request, configBytes []byte) (*run, int, error) {
	start := time.Now()
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if err := checkMonthCeiling("loan.termMonths", cfg.Loan.TermMonths); err != nil {
		return nil, http.StatusBadRequest, err
	}
	if err := checkMonthCeiling("loan.maxMonths", cfg.Loan.MaxMonths); err != nil {
		return nil, http.StatusBadRequest, err
	}

	result := &run{cfg: cfg, recorder: &simulation.Recorder{}, warnings: cfg.ValidateConfiguration()}
	for _, warning := range result.warnings {
		h.logger.Warn("configuration warning",
			zap.String("op", "server.simulate"),
			zap.String("warning", warning),
		)
	}

	result.terms, err = cfg.Terms()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	sim, err := simulation.New(h.logger, result.terms)
	if err != nil {
		metrics.ObserveSimulation(constants.ModeMonthly, start, err)
		return nil, statusFor(err), err
	}
	result.terms = sim.Terms()

	plan, err := cfg.PaymentPlan(sim.Schedule())
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	sink := simulation.MultiSink{result.recorder, output.NewCSVWriter(&result.csv), metrics.LedgerCounter{}}
	_, err = sim.Run(r.Context(), plan, sink)
	metrics.ObserveSimulation(constants.ModeMonthly, start, err)
	if err != nil {
		return nil, statusFor(err), fmt.Errorf("failed to run simulation: %w", err)
	}
	return result, http.StatusOK, nil
}

// errTooManyMonths rejects requests whose simulation would run longer than a
// single request is allowed to.
var errTooManyMonths = errors.New("too many months requested")

func checkMonthCeiling(field string, months int) error {
	if months > constants.MaxRequestMonths {
		return fmt.Errorf("%w: %s is %d, the limit is %d", errTooManyMonths, field, months, constants.MaxRequestMonths)
	}
	return nil
}

func statusFor(err error) int {
	var unaffordable *simulation.UnaffordableMonthError
	switch {
	case errors.As(err, &unaffordable), errors.Is(err, simulation.ErrMonthLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, simulation.ErrInvalidLoanTerms), errors.Is(err, simulation.ErrNegativeRate),
		errors.Is(err, simulation.ErrUnknownPolicy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	v := money(d.Decimal)
	return &v
}

func buildSchedule(entries []loans.ScheduleEntry) []scheduleRow {
	rows := make([]scheduleRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, scheduleRow{
			Month:       entry.MonthIndex,
			DueDate:     datetime.FormatDate(entry.DueDate),
			Installment: money(entry.PlannedInstallment),
			Interest:    money(entry.Interest),
			Principal:   money(entry.Principal),
			Remaining:   money(entry.RemainingPrincipal),
		})
	}
	return rows
}

func buildLedger(ledger []simulation.LedgerRow) []ledgerRow {
	rows := make([]ledgerRow, 0, len(ledger))
	for _, row := range ledger {
		rows = append(rows, ledgerRow{
			Month:            row.MonthIndex,
			DueDate:          datetime.FormatDate(row.DueDate),
			RemainingTerm:    row.RemainingTerm,
			BalanceBefore:    money(row.BalanceBefore),
			Expected:         money(row.ExpectedInstallment),
			Interest:         money(row.InterestAccrued),
			AmountPaid:       optionalMoney(row.AmountPaid),
			PaidOn:           datetime.FormatDate(row.PaidOn),
			Capitalized:      optionalMoney(row.CapitalizationAmount),
			Amortized:        optionalMoney(row.AmortizationAmount),
			ExtraPrincipal:   optionalMoney(row.ExtraPrincipal),
			Surplus:          optionalMoney(row.Surplus),
			BalanceAfter:     money(row.BalanceAfter),
			Outcome:          string(row.Outcome),
			Late:             row.WasLate,
			PastOriginalTerm: row.PastOriginalTerm,
		})
	}
	return rows
}

func buildSummary(summary simulation.Summary) summaryBody {
	return summaryBody{
		Principal:           money(summary.Principal),
		FinalBalance:        money(summary.FinalBalance),
		TotalMonthsToPayoff: summary.TotalMonthsToPayoff,
		OriginalTermMonths:  summary.OriginalTermMonths,
		MonthsPastTerm:      summary.MonthsPastTerm,
		LateMonths:          summary.LateMonths,
		MissedMonths:        summary.MissedMonths,
		TotalPaid:           money(summary.TotalPaid),
		TotalInterest:       money(summary.TotalInterest),
		TotalCapitalized:    money(summary.TotalCapitalized),
		Terminated:          summary.Terminated,
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("simulation request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
