package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"treasury-reconciliation-service/internal/analytics"
	"treasury-reconciliation-service/internal/compliance"
	"treasury-reconciliation-service/internal/ledger"
	"treasury-reconciliation-service/internal/matcher"
	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/internal/reconciler"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	invoices := []*models.Invoice{
		{
			ID:              "INV-1001",
			CustomerName:    "Tesla Inc",
			Amount:          decimal.NewFromInt(50000),
			AmountRemaining: decimal.NewFromInt(50000),
			Currency:        "USD",
			Status:          models.StatusOpen,
			DueDate:         time.Now().Add(30 * 24 * time.Hour),
		},
		{
			ID:              "INV-1002",
			CustomerName:    "Microsoft Corp",
			Amount:          decimal.NewFromInt(75000),
			AmountRemaining: decimal.Zero,
			Currency:        "USD",
			Status:          models.StatusPaid,
			DueDate:         time.Now().Add(-10 * 24 * time.Hour),
		},
	}

	service := reconciler.NewService(
		matcher.NewEngine(nil, nil),
		ledger.NewLedger(invoices),
		compliance.NewMemoryRecorder(),
	)

	return New(service, analytics.New())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/match", map[string]string{
		"amount":     "50000.00",
		"currency":   "USD",
		"payer_name": "Tesla Inc",
		"reference":  "INV-1001",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result matcher.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "INV-1001", result.Candidates[0].InvoiceID)
	assert.Equal(t, models.STPAutomated, result.Candidates[0].Classification)
	assert.Equal(t, 1.0, result.Candidates[0].Confidence)
}

func TestMatchEndpoint_NoCandidatesIsOK(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/match", map[string]string{
		"amount":     "999.00",
		"currency":   "EUR",
		"payer_name": "Stranger GmbH",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result matcher.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.Candidates)
}

func TestMatchEndpoint_InvalidInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"amount": "100"}},
		{"negative amount", map[string]string{"amount": "-100", "currency": "USD", "payer_name": "X"}},
		{"bad currency", map[string]string{"amount": "100", "currency": "usd", "payer_name": "X"}},
		{"unparseable amount", map[string]string{"amount": "abc", "currency": "USD", "payer_name": "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/match", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestDispositionEndpoint_Apply(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/dispositions", map[string]string{
		"invoice_id": "INV-1001",
		"action":     "apply",
		"amount":     "50000.00",
		"principal":  "treasury_ops",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, models.StatusPaid, inv.Status)

	// The disposition shows up in the audit trail
	w = doJSON(t, s, http.MethodGet, "/api/v1/audit?invoice_id=INV-1001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PAYMENT_APPLIED")
	assert.Contains(t, w.Body.String(), "treasury_ops")
}

func TestDispositionEndpoint_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{
			"unknown invoice",
			map[string]string{"invoice_id": "INV-404", "action": "apply", "amount": "100"},
			http.StatusNotFound,
		},
		{
			"paid invoice frozen",
			map[string]string{"invoice_id": "INV-1002", "action": "apply", "amount": "100"},
			http.StatusConflict,
		},
		{
			"over-application",
			map[string]string{"invoice_id": "INV-1001", "action": "apply", "amount": "99999999"},
			http.StatusConflict,
		},
		{
			"unknown action",
			map[string]string{"invoice_id": "INV-1001", "action": "shred"},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/dispositions", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDispositionEndpoint_Dispute(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/dispositions", map[string]string{
		"invoice_id": "INV-1001",
		"action":     "dispute",
		"principal":  "treasury_ops",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var inv models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, models.StatusDisputed, inv.Status)
}

func TestMetricsEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/metrics/dso?stress_days=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dso map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dso))
	assert.Contains(t, dso, "dso")
	assert.Contains(t, dso, "cer")
	assert.Contains(t, dso, "liquidity")

	w = doJSON(t, s, http.MethodGet, "/api/v1/metrics/dso?stress_days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/metrics/aging", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "days_31_60")

	w = doJSON(t, s, http.MethodGet, "/api/v1/metrics/esg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "exposure")
}

func TestAuditEndpoint_EmptyTrail(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())
}
