package everflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

func entityRow(offer, aff, date string, clicks, cv int64, revenue, payout float64) EntityReportRow {
	return EntityReportRow{
		Columns: []EntityColumnValue{
			{ColumnType: ColumnOffer, ID: offer, Label: "adv-" + offer},
			{ColumnType: ColumnAffiliate, ID: "9" + aff, Label: aff},
			{ColumnType: ColumnAdvertiser, ID: "1", Label: "acme"},
			{ColumnType: ColumnCountry, ID: "US", Label: "US"},
			{ColumnType: ColumnDate, Label: date},
		},
		Reporting: EntityReportSummary{TotalClick: clicks, Conversions: cv, Revenue: revenue, Payout: payout},
	}
}

func TestFetchMetrics(t *testing.T) {
	var got EntityReportRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, entityEndpoint, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Eflow-API-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(EntityReportResponse{Table: []EntityReportRow{
			entityRow("101", "aff1", "2026-10-12", 200, 10, 100, 70),
			entityRow("101", "aff1", "2026-10-13", 0, 0, 0, 0),
			{Columns: []EntityColumnValue{{ColumnType: ColumnDate, Label: "2026-10-13"}}},
		}})
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		TimezoneID:   90,
		CurrencyID:   "USD",
		AffiliateIDs: []string{"9533"},
	})

	from := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	records, err := client.FetchMetrics(context.Background(), from, from.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "2026-10-12", got.From)
	assert.Equal(t, "2026-10-13", got.To)
	assert.Equal(t, 90, got.TimezoneID)
	require.Len(t, got.Query.Filters, 1)
	assert.Equal(t, Filter{ResourceType: "affiliate", FilterIDValue: "9533"}, got.Query.Filters[0])
	assert.Len(t, got.Columns, 5)

	require.Len(t, records, 2, "row without offer is skipped")
	r := records[0]
	assert.Equal(t, "101", r.OfferID)
	assert.Equal(t, "adv-101", r.AdvOfferID)
	assert.Equal(t, "acme", r.Advertiser)
	assert.Equal(t, "aff1", r.Affiliate)
	assert.Equal(t, from, r.Date)
	assert.InDelta(t, 30, r.Profit, 1e-9)
	assert.InDelta(t, 10, r.UnitPrice, 1e-9)
	assert.Equal(t, domain.StatusActive, r.Status)
	assert.Equal(t, domain.StatusUnknown, records[1].Status)
}

func TestFetchMetricsAPIError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.FetchMetrics(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestFetchMetricsBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).FetchMetrics(context.Background(), time.Now(), time.Now())
	assert.ErrorContains(t, err, "parse entity report")
}

func TestRowDateFromUnixID(t *testing.T) {
	row := EntityReportRow{Columns: []EntityColumnValue{{ColumnType: ColumnDate, ID: "1760227200"}}}
	d, ok := rowDate(row)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC), d)
}
