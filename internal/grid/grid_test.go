package grid

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

var (
	d1 = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)
)

func rec(offer, aff string, date time.Time, revenue, profit, hours float64) domain.MetricRecord {
	return domain.MetricRecord{
		OfferID: offer, Affiliate: aff, Date: date,
		Revenue: revenue, Profit: profit, OnlineHours: hours,
		Clicks: 10, Conversions: 1, Status: domain.StatusActive,
	}
}

func TestBuildZeroFillsMissingDays(t *testing.T) {
	records := []domain.MetricRecord{
		rec("1", "a", d2, 100, 20, 24),
		rec("2", "a", d1, 50, 10, 12),
	}

	g := Build(records, ByOffer, []time.Time{d2, d1})

	require.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"1", "2"}, g.Entities())

	gone := g.Cell("2", d2)
	assert.False(t, gone.Present)
	assert.Zero(t, gone.Revenue)
	assert.Zero(t, gone.Profit)

	c := g.Cell("1", d2)
	assert.True(t, c.Present)
	assert.Equal(t, 100.0, c.Revenue)
}

func TestBuildAggregates(t *testing.T) {
	records := []domain.MetricRecord{
		rec("1", "a", d2, 100, 20, 10),
		rec("1", "b", d2, 50, 5, 24),
		{OfferID: "1", Affiliate: "c", Date: d2, Status: domain.StatusUnknown},
		{OfferID: "1", Affiliate: "d", Date: d2, Status: domain.StatusPause, Geo: "US"},
	}
	records[0].Status = domain.StatusUnknown

	g := Build(records, ByOffer, []time.Time{d2})
	c := g.Cell("1", d2)

	assert.Equal(t, 150.0, c.Revenue)
	assert.Equal(t, 25.0, c.Profit)
	assert.Equal(t, 20.0, c.Clicks)
	assert.Equal(t, 24.0, c.OnlineHours, "online hours take the max")
	assert.Equal(t, "a", c.Attrs.Affiliate)
	assert.Equal(t, "US", c.Attrs.Geo)
	assert.Equal(t, domain.StatusActive, c.Attrs.Status, "UNKNOWN counts as null")
}

func TestBuildKeepsEntitiesOutsideDates(t *testing.T) {
	records := []domain.MetricRecord{
		rec("old", "a", d3, 10, 1, 1),
		rec("1", "a", d2, 10, 1, 1),
	}

	g := Build(records, ByOffer, []time.Time{d2, d1})

	assert.Equal(t, 4, g.Len())
	assert.False(t, g.Cell("old", d2).Present)
	assert.False(t, g.Cell("old", d1).Present)
}

func TestRowsCompleteness(t *testing.T) {
	for _, tc := range []struct{ entities, dates int }{{1, 1}, {3, 2}, {7, 5}, {20, 30}} {
		t.Run(fmt.Sprintf("%dx%d", tc.entities, tc.dates), func(t *testing.T) {
			var dates []time.Time
			for i := 0; i < tc.dates; i++ {
				dates = append(dates, d1.AddDate(0, 0, -i))
			}
			var records []domain.MetricRecord
			// each entity appears on one date only, leaving the rest sparse
			for i := 0; i < tc.entities; i++ {
				records = append(records, rec(fmt.Sprint(i), "a", dates[i%tc.dates], 1, 1, 1))
			}

			g := Build(records, ByOffer, dates)
			rows := g.Rows()

			require.Len(t, rows, tc.entities*tc.dates)
			present := 0
			for _, r := range rows {
				if r.Present {
					present++
				} else {
					assert.Zero(t, r.Revenue)
				}
			}
			assert.Equal(t, tc.entities, present)
		})
	}
}

func TestBuildDeduplicatesDates(t *testing.T) {
	g := Build([]domain.MetricRecord{rec("1", "a", d1, 1, 1, 1)}, ByOffer, []time.Time{d1, d1.Add(3 * time.Hour)})
	assert.Len(t, g.Dates(), 1)
}

func TestByAllCollapsesEverything(t *testing.T) {
	records := []domain.MetricRecord{rec("1", "a", d1, 1, 1, 1), rec("2", "b", d1, 2, 2, 1)}
	g := Build(records, ByAll, []time.Time{d1})

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 3.0, g.Cell("", d1).Revenue)
}
