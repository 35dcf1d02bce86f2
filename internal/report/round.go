package report

import (
	"github.com/shopspring/decimal"

	"github.com/ignite/offer-diagnostics/internal/analysis"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/rollup"
)

// Output rounding, half away from zero. Ratios keep three places so they
// show one decimal once expressed as a percentage.
func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func money(v *float64)  { *v = roundTo(*v, 2) }
func ratio(v *float64)  { *v = roundTo(*v, 3) }
func points(v *float64) { *v = roundTo(*v, 1) }

func each(fn func(*float64), vs ...*float64) {
	for _, v := range vs {
		fn(v)
	}
}

func (r *Report) round() {
	for i := range r.Totals {
		t := &r.Totals[i]
		each(money, &t.Target, &t.RevenueNew, &t.RevenueOld, &t.ProfitNew, &t.ProfitOld)
		each(ratio, &t.RevenueRatio, &t.ProfitRatio, &t.MarginNew, &t.MarginOld, &t.MarginRatio)
	}
	for i := range r.Advertisers {
		roundGroup(&r.Advertisers[i], ratio)
	}
	for i := range r.Affiliates {
		roundGroup(&r.Affiliates[i], points)
	}
	for i := range r.Fluctuations {
		roundMove(&r.Fluctuations[i])
	}
	for i := range r.PeakDeclines {
		roundMove(&r.PeakDeclines[i])
	}
	if inf := r.Influence; inf != nil {
		each(money, &inf.RevenueNew, &inf.RevenueOld, &inf.ProfitNew, &inf.ProfitOld, &inf.ProfitDelta,
			&inf.Contribution.Revenue, &inf.Contribution.Margin)
		each(ratio, &inf.MarginNew, &inf.MarginOld)
		each(points, &inf.RevenuePct, &inf.ProfitPct, &inf.MarginPct)
		for i := range inf.CoreOffers {
			c := &inf.CoreOffers[i]
			each(money, &c.Delta, &c.RevenueDriven, &c.MarginDriven)
			for j := range c.Affiliates {
				money(&c.Affiliates[j].Delta)
			}
		}
	}
	for i := range r.Rejects {
		each(ratio, &r.Rejects[i].RejectRate, &r.Rejects[i].OfferRejectRate)
	}
	for i := range r.Events {
		each(ratio, &r.Events[i].EventRate, &r.Events[i].OfferEventRate)
	}
	for i := range r.Actions {
		a := &r.Actions[i]
		each(money, &a.UnitPrice, &a.Cap, &a.RemainingCap, &a.AffiliateRevenueLatest, &a.AffiliateRevenueTrailing,
			&a.Trailing.Revenue, &a.Trailing.Cost, &a.Trailing.Profit,
			&a.Latest.Revenue, &a.Latest.Cost, &a.Latest.Profit)
	}
}

func roundGroup(g *rollup.GroupRollup, change func(*float64)) {
	each(money, &g.RevenueNew, &g.RevenueOld, &g.ProfitNew, &g.ProfitOld)
	each(ratio, &g.MarginNew, &g.MarginOld, &g.RejectRateNew, &g.RejectRateOld)
	each(change, &g.RevenueChange, &g.ProfitChange, &g.MarginChange)
}

func roundMove(m *analysis.OfferMove) {
	each(money, &m.Cap, &m.UnitPrice, &m.OnlineHoursNew, &m.OnlineHoursOld,
		&m.RevenueNew, &m.RevenueOld, &m.ProfitNew, &m.ProfitOld, &m.Delta)
	each(ratio, &m.MarginNew, &m.MarginOld)
	for i := range m.Affiliates {
		roundDiagnosis(&m.Affiliates[i])
	}
}

func roundDiagnosis(d *narrative.Diagnosis) {
	each(money, &d.Delta, &d.ProfitOld, &d.ProfitNew, &d.RevenueOld, &d.RevenueNew,
		&d.RevenueMove, &d.RevenueContrib, &d.MarginContrib)
	each(ratio, &d.CROld, &d.CRNew, &d.MarginOld, &d.MarginNew)
	each(points, &d.RevenuePct, &d.ClicksPct, &d.CRPct, &d.PctChange, &d.StablePct)
}
