package everflow

import (
	"strconv"
	"time"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
)

// toRecord maps one entity row. Everflow has no delivery status or cap, so
// rows with clicks count as ACTIVE and the cap is left for the offer default.
func toRecord(row EntityReportRow) (domain.MetricRecord, bool) {
	offer, ok := row.column(ColumnOffer)
	if !ok || offer.ID == "" {
		return domain.MetricRecord{}, false
	}
	date, ok := rowDate(row)
	if !ok {
		return domain.MetricRecord{}, false
	}

	rep := row.Reporting
	rec := domain.MetricRecord{
		OfferID:     offer.ID,
		AdvOfferID:  offer.Label,
		Date:        date,
		Clicks:      float64(rep.TotalClick),
		Conversions: float64(rep.Conversions),
		Revenue:     rep.Revenue,
		Cost:        rep.Payout,
		Profit:      rep.Revenue - rep.Payout,
		Status:      domain.StatusUnknown,
	}
	if a, ok := row.column(ColumnAffiliate); ok {
		rec.Affiliate = a.Label
	}
	if a, ok := row.column(ColumnAdvertiser); ok {
		rec.Advertiser = a.Label
	}
	if g, ok := row.column(ColumnCountry); ok {
		rec.Geo = g.Label
	}
	if rep.TotalClick > 0 {
		rec.Status = domain.StatusActive
	}
	if rep.Conversions > 0 {
		rec.UnitPrice = rep.Revenue / float64(rep.Conversions)
	}
	return rec, true
}

// rowDate reads the date column, given either as a label or a unix id.
func rowDate(row EntityReportRow) (time.Time, bool) {
	c, ok := row.column(ColumnDate)
	if !ok {
		return time.Time{}, false
	}
	if t, ok := datanorm.ParseDate(c.Label); ok {
		return t, true
	}
	if sec, err := strconv.ParseInt(c.ID, 10, 64); err == nil && sec > 0 {
		return domain.Day(time.Unix(sec, 0).UTC()), true
	}
	return time.Time{}, false
}
