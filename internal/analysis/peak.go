package analysis

import (
	"context"
	"time"

	"github.com/ignite/offer-diagnostics/internal/calendar"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

type dayTotal struct {
	revenue, profit, hours float64
}

type peakCandidate struct {
	offer    string
	peakDate time.Time
	peak     dayTotal
	latest   dayTotal
}

// PeakDecline compares each offer's latest day with its best profit day in
// [last Thursday, penultimate date). Last Thursday is relative to Today, the
// penultimate date is the data's second latest date, so the still-filling
// latest day is never a peak candidate.
func PeakDecline(ctx context.Context, e *Env) ([]OfferMove, error) {
	if e.DayNew.IsZero() {
		return nil, nil
	}
	latest := e.DayNew
	penultimate := e.DayOld
	if penultimate.IsZero() {
		penultimate = latest
	}
	from := calendar.LastThursday(e.Today)

	var order []string
	daily := make(map[string]map[time.Time]*dayTotal)
	latestByOffer := make(map[string]*dayTotal)
	seen := make(map[string]bool)
	for _, r := range e.Records {
		d := domain.Day(r.Date)
		inWindow := !d.Before(from) && d.Before(penultimate)
		if !inWindow && !d.Equal(latest) {
			continue
		}
		if !seen[r.OfferID] {
			seen[r.OfferID] = true
			order = append(order, r.OfferID)
		}
		var t *dayTotal
		if inWindow {
			if daily[r.OfferID] == nil {
				daily[r.OfferID] = make(map[time.Time]*dayTotal)
			}
			if t = daily[r.OfferID][d]; t == nil {
				t = &dayTotal{}
				daily[r.OfferID][d] = t
			}
		} else {
			if t = latestByOffer[r.OfferID]; t == nil {
				t = &dayTotal{}
				latestByOffer[r.OfferID] = t
			}
		}
		t.revenue += r.Revenue
		t.profit += r.Profit
		if r.OnlineHours > t.hours {
			t.hours = r.OnlineHours
		}
	}

	var candidates []peakCandidate
	for _, id := range order {
		c := peakCandidate{offer: id}
		if days := daily[id]; len(days) > 0 {
			// earliest date wins ties
			first := true
			for d, t := range days {
				if first || t.profit > c.peak.profit || (t.profit == c.peak.profit && d.Before(c.peakDate)) {
					c.peakDate, c.peak, first = d, *t, false
				}
			}
		}
		if t := latestByOffer[id]; t != nil {
			c.latest = *t
		}
		if c.latest.profit-c.peak.profit <= -e.Thresholds.PeakDrop {
			candidates = append(candidates, c)
		}
	}
	logger.Debug("analysis: offers below peak", "count", len(candidates), "window_from", label(from), "window_to", label(penultimate))

	newSince := latest.AddDate(0, 0, -e.Thresholds.NewBudgetDays)
	out := make([]OfferMove, len(candidates))
	err := forEach(ctx, len(candidates), e.Concurrency, func(ctx context.Context, i int) error {
		c := candidates[i]
		info, _ := e.Offers.Get(c.offer)
		p := variance.Pair{
			Entity: c.offer,
			New:    variance.Snapshot{Date: latest, Revenue: c.latest.revenue, Profit: c.latest.profit, OnlineHours: c.latest.hours},
			Old:    variance.Snapshot{Date: c.peakDate, Revenue: c.peak.revenue, Profit: c.peak.profit, OnlineHours: c.peak.hours},
			Delta:  c.latest.profit - c.peak.profit,
		}
		m := newOfferMove(info, p, latest, c.peakDate)
		if err := e.drillDown(ctx, &m, variance.Decline, ";\n"); err != nil {
			return err
		}
		m.StatusSummary = e.statusSummary(m)
		m.BudgetType = BudgetOld
		first, ok := firstDate(e.offerRecords(c.offer), func(r domain.MetricRecord) bool { return r.Revenue > 0 })
		if ok && !first.Before(newSince) {
			m.BudgetType = BudgetNew
		}
		out[i] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
