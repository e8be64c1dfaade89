package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fjacquet/cfdi-sentinel/internal/engine"
	"fjacquet/cfdi-sentinel/internal/history"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/metrics"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingValidator struct {
	mu       sync.Mutex
	inputs   []engine.Input
	deadline bool
}

func (v *recordingValidator) Validate(ctx context.Context, in engine.Input) models.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputs = append(v.inputs, in)
	_, v.deadline = ctx.Deadline()
	return models.Result{FileName: in.FileName, UUID: "U-1", Outcome: models.OutcomeUsable, Label: "🟢 USABLE", Score: 100}
}

type fakeLister struct {
	runs  []history.Summary
	err   error
	limit int
}

func (l *fakeLister) List(_ context.Context, limit int) ([]history.Summary, error) {
	l.limit = limit
	return l.runs, l.err
}

func TestHealth(t *testing.T) {
	srv := NewServer(Options{Validator: &recordingValidator{}})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidate(t *testing.T) {
	v := &recordingValidator{}
	logger := logging.NewMockLogger()
	srv := NewServer(Options{Validator: v, Logger: logger, Activity: "consultoria"})

	req := httptest.NewRequest(http.MethodPost, "/v1/validate?file=../../etc/a.xml", strings.NewReader("<cfdi/>"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var res models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "U-1", res.UUID)
	assert.Equal(t, 100, res.Score)

	require.Len(t, v.inputs, 1)
	assert.Equal(t, "a.xml", v.inputs[0].FileName)
	assert.Equal(t, []byte("<cfdi/>"), v.inputs[0].Data)
	assert.Equal(t, "consultoria", v.inputs[0].Activity)
	assert.True(t, v.deadline)

	status, ok := logger.FieldValue("request", logging.FieldStatus)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
}

func TestValidate_ActivityFromQuery(t *testing.T) {
	v := &recordingValidator{}
	srv := NewServer(Options{Validator: v, Activity: "consultoria"})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/validate?giro=transporte", strings.NewReader("<x/>")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, v.inputs, 1)
	assert.Equal(t, "transporte", v.inputs[0].Activity)
	assert.Equal(t, "request.xml", v.inputs[0].FileName)
}

func TestValidate_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int64
		code int
	}{
		{name: "empty body", body: "", code: http.StatusBadRequest},
		{name: "whitespace body", body: "  \n ", code: http.StatusBadRequest},
		{name: "too large", body: strings.Repeat("x", 64), max: 16, code: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &recordingValidator{}
			srv := NewServer(Options{Validator: v, MaxBodyBytes: tt.max})
			rec := httptest.NewRecorder()

			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(tt.body)))

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, v.inputs)
		})
	}
}

func TestValidate_RealEngine(t *testing.T) {
	srv := NewServer(Options{Validator: engine.New(engine.Options{RejectUnknownVersions: true}), Timeout: time.Second})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/validate?file=broken.xml", strings.NewReader("<cfdi:Comprobante")))

	require.Equal(t, http.StatusOK, rec.Code)
	var res models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "broken.xml", res.FileName)
	assert.Equal(t, "🔴 NO USABLE", res.Label)
	assert.NotEmpty(t, res.Codes)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.ObserveBatch()
	srv := NewServer(Options{Validator: &recordingValidator{}, Metrics: m})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cfdi_sentinel_batches_completed_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := NewServer(Options{Validator: &recordingValidator{}})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	tests := []struct {
		name      string
		lister    *fakeLister
		query     string
		code      int
		wantLimit int
		contains  string
	}{
		{
			name:      "default limit",
			lister:    &fakeLister{runs: []history.Summary{{RunID: "r1", TotalAmount: decimal.RequireFromString("10.5")}}},
			code:      http.StatusOK,
			wantLimit: 20,
			contains:  `"run_id":"r1"`,
		},
		{name: "explicit limit", lister: &fakeLister{}, query: "?limit=3", code: http.StatusOK, wantLimit: 3, contains: "[]"},
		{name: "bad limit", lister: &fakeLister{}, query: "?limit=abc", code: http.StatusBadRequest, contains: "limit"},
		{name: "store error", lister: &fakeLister{err: errors.New("db down")}, code: http.StatusInternalServerError, wantLimit: 20, contains: "failed to list history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Options{Validator: &recordingValidator{}, History: tt.lister})
			rec := httptest.NewRecorder()

			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history"+tt.query, nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.Equal(t, tt.wantLimit, tt.lister.limit)
		})
	}
}

func TestHistory_Disabled(t *testing.T) {
	srv := NewServer(Options{Validator: &recordingValidator{}})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	srv := NewServer(Options{Validator: &recordingValidator{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                "request.xml",
		"a.xml":           "a.xml",
		"../../x.xml":     "x.xml",
		`C:\docs\y.xml`:   "y.xml",
		"dir/..":          "_",
		"weird..name.xml": "weird_name.xml",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, sanitizeFilename(in))
		})
	}
}
