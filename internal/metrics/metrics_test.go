package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

func TestObserveStage(t *testing.T) {
	r := New()
	r.ObserveStage("actions", 20*time.Millisecond, 7)
	r.ObserveStage("actions", 30*time.Millisecond, 9)

	assert.Equal(t, 9.0, testutil.ToFloat64(r.StageRows.WithLabelValues("actions")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.StageDuration))
}

func TestRecordRun(t *testing.T) {
	r := New()
	rep := &report.Report{
		GeneratedAt: time.Unix(1_760_000_000, 0),
		Actions: []domain.ActionItem{
			{Tier: domain.Tier1}, {Tier: domain.Tier1}, {Tier: domain.Tier2}, {},
		},
	}
	r.RecordRun("workbook", rep, nil)
	r.RecordRun("workbook", nil, errors.New("bad sheet"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("workbook", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("workbook", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.ActionItems.WithLabelValues("tier1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActionItems.WithLabelValues("none")))
	assert.Equal(t, 1_760_000_000.0, testutil.ToFloat64(r.LastRun))
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveStage("totals", time.Millisecond, 3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `offerdiag_stage_rows{stage="totals"} 3`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
