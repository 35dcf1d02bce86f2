package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/metrics"
	"github.com/ignite/offer-diagnostics/internal/pkg/httputil"
	"github.com/ignite/offer-diagnostics/internal/service/diagnostics"
	"github.com/ignite/offer-diagnostics/internal/storage"
)

func day(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	reg := metrics.New()
	svc, err := diagnostics.NewService(cfg, diagnostics.Deps{
		Store:    storage.NewMemoryStore(),
		Recorder: reg,
		Clock:    func() time.Time { return day(14) },
	})
	require.NoError(t, err)
	return NewServer(cfg.Server, svc, nil, reg)
}

func workbookBytes(t *testing.T, withMetrics bool) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{
		"3--匹配业务负责广告主": {
			{"Advertiser", "二级广告主", "三级广告主", "流量匹配逻辑"},
			{"acme", "Acme", "Acme Group", "xdj"},
		},
	}
	if withMetrics {
		sheets["1--过去30天总流水"] = [][]any{
			{"Offer ID", "Adv Offer ID", "Advertiser", "App ID", "GEO", "Total Caps", "Total Clicks",
				"Total Conversions", "Total Revenue", "Total Cost", "Total Profit", "Online hour", "Status", "Affiliate", "Time", "Payin"},
			{101, "A1", "acme", "com.app", "US", 100, 200, 10, 100, 70, 30, 24, "ACTIVE", "aff1", "2026-10-12", 10},
			{101, "A1", "acme", "com.app", "US", 100, 100, 4, 40, 30, 10, 24, "ACTIVE", "aff1", "2026-10-13", 10},
		}
	}
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, file []byte, today string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("file", "input.xlsx")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	if today != "" {
		require.NoError(t, mw.WriteField("today", today))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func createReport(t *testing.T, srv *Server) runSummary {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, workbookBytes(t, true), "2026-10-14"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sum runSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	return sum
}

func TestCreateAndGetReport(t *testing.T) {
	srv := setupTestServer(t)
	sum := createReport(t, srv)
	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, "2026-10-13", sum.DayNew)
	assert.Equal(t, "2026-10-12", sum.DayOld)
	assert.Equal(t, "2026-10-14", sum.Today)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+sum.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, sum.ID, body["id"])
	assert.Contains(t, body, "fluctuations")
}

func TestCreateReportMissingSheet(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, workbookBytes(t, false), ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_workbook", resp.Code)
}

func TestCreateReportWithoutFile(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, nil, "2026-10-14"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReportBadToday(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, workbookBytes(t, true), "14/10/2026"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestCreateReportJSON(t *testing.T) {
	srv := setupTestServer(t)
	rec := func(d time.Time, revenue, profit float64) domain.MetricRecord {
		return domain.MetricRecord{
			OfferID: "1", Advertiser: "acme", AppID: "app", Geo: "US", Affiliate: "A", Date: d,
			Clicks: 10, Conversions: 1, Revenue: revenue, Cost: revenue - profit, Profit: profit,
			Status: domain.StatusActive, Cap: 100,
		}
	}
	payload, err := json.Marshal(map[string]any{
		"today": "2026-10-14",
		"input": domain.Input{Metrics: []domain.MetricRecord{rec(day(12), 50, 20), rec(day(13), 20, 5)}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reports/json", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateReportJSONValidation(t *testing.T) {
	srv := setupTestServer(t)
	for name, body := range map[string]string{
		"missing input": `{"today":"2026-10-14"}`,
		"bad today":     `{"today":"yesterday","input":{"metrics":[]}}`,
		"not json":      `{`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reports/json", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateReportJSONNoMetrics(t *testing.T) {
	srv := setupTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reports/json",
		strings.NewReader(`{"input":{"metrics":[]}}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetReportNotFound(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetActions(t *testing.T) {
	srv := setupTestServer(t)
	sum := createReport(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+sum.ID+"/actions?tier=tier1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tier    string              `json:"tier"`
		Actions []domain.ActionItem `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tier1", body.Tier)
	assert.Len(t, body.Actions, sum.Tier1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+sum.ID+"/actions?tier=tier9", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadWorkbook(t *testing.T) {
	srv := setupTestServer(t)
	sum := createReport(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+sum.ID+"/workbook", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httputil.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "offer-diagnostics-2026-10-14.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 9)
}

func TestListReportsWithoutHistory(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	createReport(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "offerdiag_runs_total")
	assert.Contains(t, string(body), "offerdiag_http_requests_total")
}

func TestHealth(t *testing.T) {
	hc := NewHealthChecker().
		Add("source", true, time.Second, func(context.Context) error { return nil }).
		Add("cache", false, time.Second, func(context.Context) error { return errors.New("refused") })

	rec := httptest.NewRecorder()
	hc.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "up", status.Checks["source"].Status)
	assert.Equal(t, "down", status.Checks["cache"].Status)

	rec = httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessFailsOnCriticalProbe(t *testing.T) {
	hc := NewHealthChecker().Add("source", true, time.Second, func(context.Context) error { return errors.New("401") })
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthWithoutProbes(t *testing.T) {
	srv := setupTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}
