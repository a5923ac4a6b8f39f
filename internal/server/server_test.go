package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/loan-arrears/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func loanPayload() map[string]interface{} {
	return map[string]interface{}{
		"loan": map[string]interface{}{
			"principal":     10000,
			"periodicRate":  2,
			"termMonths":    12,
			"startDate":     "2024-01-31",
			"defaultPolicy": "interest-only",
		},
		"payments": map[string]interface{}{
			"fallback": "expected",
			"overrides": []interface{}{
				map[string]interface{}{"month": 1, "missed": true},
			},
		},
	}
}

func TestHandleSimulateSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performJSON(t, handler, map[string]interface{}{"config": loanPayload()}, "/api/simulate")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	require.Len(t, resp.Schedule, 12)
	assert.Equal(t, "945.60", resp.Schedule[0].Installment)

	require.NotEmpty(t, resp.Ledger)
	first := resp.Ledger[0]
	assert.Equal(t, "default", first.Outcome)
	assert.True(t, first.Late)
	assert.Nil(t, first.AmountPaid)
	require.NotNil(t, first.Capitalized)
	assert.Equal(t, "200.00", *first.Capitalized)
	assert.Equal(t, "10200.00", first.BalanceAfter)

	assert.True(t, resp.Summary.Terminated)
	assert.Equal(t, "0.00", resp.Summary.FinalBalance)
	assert.Equal(t, 1, resp.Summary.MissedMonths)
	assert.NotEmpty(t, resp.CSV)
	assert.NotEmpty(t, resp.Duration)
	assert.Contains(t, resp.ConfigYAML, "principal")
}

func TestHandleSimulateUnwrappedPayload(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performJSON(t, handler, loanPayload(), "/api/simulate")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandleSimulateUpload(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	data, err := os.ReadFile(filepath.Join("..", "..", "config.yaml.example"))
	require.NoError(t, err)

	rr := performUpload(t, handler, string(data), "config.yaml")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.MissedMonths)
	assert.True(t, resp.Summary.Terminated)
}

func TestHandleSimulateWarnings(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	payload := loanPayload()
	payload["payments"] = map[string]interface{}{
		"overrides": []interface{}{
			map[string]interface{}{"month": 2, "missed": true, "amount": 50},
		},
	}

	rr := performJSON(t, handler, payload, "/api/simulate")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "marked missed")
}

func TestHandleSimulateErrors(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	withLoan := func(key string, value interface{}) map[string]interface{} {
		payload := loanPayload()
		payload["loan"].(map[string]interface{})[key] = value
		return payload
	}

	tests := []struct {
		name     string
		payload  map[string]interface{}
		status   int
		contains string
	}{
		{"Zero principal", withLoan("principal", 0), http.StatusBadRequest, "invalid loan terms"},
		{"Negative rate", withLoan("periodicRate", -1), http.StatusBadRequest, "negative"},
		{"Malformed start date", withLoan("startDate", "31/01/2024"), http.StatusBadRequest, "malformed date"},
		{"Unknown policy", withLoan("defaultPolicy", "forgive"), http.StatusBadRequest, "policy"},
		{"Overflowing installment", withLoan("periodicRate", 1e30), http.StatusUnprocessableEntity, "unaffordable"},
		{"Month limit", func() map[string]interface{} {
			payload := withLoan("maxMonths", 3)
			payload["payments"] = map[string]interface{}{"fallback": "missed"}
			return payload
		}(), http.StatusUnprocessableEntity, "month limit"},
		{"Term above request ceiling", withLoan("termMonths", 100000), http.StatusBadRequest, "too many months"},
		{"Month limit above request ceiling", withLoan("maxMonths", constants.MaxRequestMonths+1), http.StatusBadRequest, "loan.maxmonths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, tt.payload, "/api/simulate")
			require.Equal(t, tt.status, rr.Code, rr.Body.String())

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, strings.ToLower(resp["error"]), tt.contains)
		})
	}
}

func TestHandleSimulateInvalidPayloads(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = performJSON(t, handler, map[string]interface{}{"config": "loan"}, "/api/simulate")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "expected object")

	rr = performUpload(t, handler, "loan: [", "config.yaml")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "error reading config data")
}

func TestHandleSimulateMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	for _, path := range []string{"/api/simulate", "/api/aging", "/api/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, path)
	}
}

func TestHandleSimulateUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "test")

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml")
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "upload exceeds limit")
}

func TestHandleSimulateMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "missing configuration file", resp["error"])
}

func TestHandleAging(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	payload := map[string]interface{}{
		"mode": "aging",
		"aging": map[string]interface{}{
			"capital":      1000,
			"periodicRate": 2,
			"expectedDate": "2024-01-15",
			"actualDate":   "2024-04-20",
		},
	}

	rr := performJSON(t, handler, payload, "/api/aging")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp agingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.MonthsLate)
	assert.False(t, resp.OnTime)
	assert.Equal(t, "1000.00", resp.InitialCapital)
	assert.Equal(t, "1061.21", resp.FinalCapital)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "20.40", resp.Rows[1].Interest)
	assert.Contains(t, resp.CSV, "final,,,1061.21")
}

func TestHandleAgingErrors(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performJSON(t, handler, map[string]interface{}{
		"aging": map[string]interface{}{"capital": 1000, "periodicRate": 2, "expectedDate": "2024-01-15"},
	}, "/api/aging")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "malformed date")

	rr = performJSON(t, handler, map[string]interface{}{
		"aging": map[string]interface{}{"capital": 0, "periodicRate": 2, "expectedDate": "2024-01-15", "actualDate": "2024-01-15"},
	}, "/api/aging")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = performJSON(t, handler, map[string]interface{}{
		"aging": map[string]interface{}{"capital": 1000, "periodicRate": 2, "expectedDate": "1900-01-15", "actualDate": "2024-01-15"},
	}, "/api/aging")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "too many months")
}

func TestHandleExport(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performJSON(t, handler, loanPayload(), "/api/export?format=pdf")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = performJSON(t, handler, loanPayload(), "/api/export?format=xlsx")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Contains(t, f.GetSheetList(), "ledger")

	rr = performJSON(t, handler, loanPayload(), "/api/export?format=docx")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleExportAging(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")
	payload := map[string]interface{}{
		"aging": map[string]interface{}{
			"capital":      1000,
			"periodicRate": 2,
			"expectedDate": "2024-01-15",
			"actualDate":   "2024-04-20",
		},
	}

	rr := performJSON(t, handler, payload, "/api/export?mode=aging&format=pdf")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "loan-arrears-aging-")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = performJSON(t, handler, payload, "/api/export?mode=aging&format=xlsx")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"summary", "compounding"}, f.GetSheetList())

	rr = performJSON(t, handler, payload, "/api/export?mode=weekly")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "  1.2.3 ")

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.3", resp["version"])

	handler = NewHandler(nil, 0, "")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "dev", resp["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performJSON(t, handler, loanPayload(), "/api/simulate")
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "loan_simulations_total")
	assert.Contains(t, body, "loan_simulated_months_total")
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
