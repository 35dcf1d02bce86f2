package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

var oct12 = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func metricRows() *sqlmock.Rows {
	cols := make([]string, len(MetricColumns))
	copy(cols, MetricColumns)
	return sqlmock.NewRows(cols).
		AddRow("101", "A1", "acme", "com.app", "US", "aff1", oct12.Add(5*time.Hour),
			200.0, 10.0, 100.0, 70.0, 30.0, 24.0, "active", 50.0, 10.0).
		AddRow("102", nil, nil, nil, nil, "aff2", oct12,
			nil, nil, 5.0, nil, 5.0, nil, nil, nil, nil)
}

func TestMetricQuery(t *testing.T) {
	q, err := MetricQuery("public.daily_flow", Dollar)
	require.NoError(t, err)
	assert.Contains(t, q, "FROM public.daily_flow WHERE date >= $1 AND date <= $2")

	q, err = MetricQuery("DB.SCHEMA.FLOW", Question)
	require.NoError(t, err)
	assert.Contains(t, q, "date >= ? AND date <= ?")

	_, err = MetricQuery("flow; DROP TABLE x", Dollar)
	assert.Error(t, err)
}

func TestMetricLoader(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_flow WHERE date >= $1")).
		WithArgs("2026-10-12", "2026-10-13").
		WillReturnRows(metricRows())

	records, err := NewMetricLoader(db, "").LoadMetrics(context.Background(), oct12, oct12.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, oct12, records[0].Date, "dates truncate to the day")
	assert.Equal(t, domain.StatusActive, records[0].Status)
	assert.Equal(t, 50.0, records[0].Cap)
	assert.Equal(t, "", records[1].Advertiser)
	assert.Equal(t, domain.StatusUnknown, records[1].Status)
	assert.Zero(t, records[1].Cap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleReport() *report.Report {
	return &report.Report{
		ID:          "3f0c6d2e-8a51-4d9a-9a55-5f3df2b0c001",
		DayNew:      oct12.AddDate(0, 0, 1),
		DayOld:      oct12,
		Today:       oct12.AddDate(0, 0, 2),
		GeneratedAt: oct12.AddDate(0, 0, 2).Add(time.Hour),
		Actions: []domain.ActionItem{
			{OfferID: "101", Advertiser: "acme", Affiliate: "aff1", Rule: domain.RulePushConverting,
				Label: "push", Rank: 1, Tier: domain.Tier1, RemainingCap: 40},
		},
	}
}

func TestSaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rep := sampleReport()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO report_runs").
		WithArgs(rep.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), rep.Today, rep.GeneratedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO report_action_items")
	prep.ExpectExec().
		WithArgs(rep.ID, 0, "101", "", "acme", "", "", "aff1", 0.0, 0.0, 0.0, 0.0, 40.0, "c", "push", 1, "tier1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewStore(db).SaveRun(context.Background(), rep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO report_runs").WillReturnError(driver.ErrBadConn)
	mock.ExpectRollback()

	err = NewStore(db).SaveRun(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rep := sampleReport()
	payload, _ := json.Marshal(rep)
	mock.ExpectQuery("SELECT payload FROM report_runs").WithArgs(rep.ID).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectQuery("SELECT payload FROM report_runs").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	store := NewStore(db)
	got, err := store.GetRun(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, got.ID)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, domain.Tier1, got.Actions[0].Tier)

	_, err = store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActionItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE run_id = $1 AND priority_tier = $2 ORDER BY position")).
		WithArgs("r1", "tier1").
		WillReturnRows(sqlmock.NewRows([]string{
			"offer_id", "adv_offer_id", "advertiser", "app_id", "geo", "affiliate",
			"unit_price", "cap", "affiliate_revenue_latest", "affiliate_revenue_trailing", "remaining_cap",
			"rule", "label", "rank", "priority_tier",
		}).AddRow("101", "A1", "acme", "app", "US", "aff1", 1.5, 100.0, 3.0, 30.0, 40.0, "d", "keep", 2, "tier1"))

	items, err := NewStore(db).ListActionItems(context.Background(), "r1", domain.Tier1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.RuleKeepSending, items[0].Rule)
	assert.Equal(t, 2, items[0].Rank)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM report_runs r").WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "today", "generated_at", "count"}).
			AddRow("r1", oct12, oct12, 3))

	runs, err := NewStore(db).ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Actions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
