package analysis

import (
	"context"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/grid"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// Fluctuation flags the offers whose profit moved by at least the offer
// threshold between the two latest dates and explains each with the affiliates
// that moved in the same direction.
func Fluctuation(ctx context.Context, e *Env) ([]OfferMove, error) {
	if e.DayNew.IsZero() || e.DayOld.IsZero() {
		return nil, nil
	}
	a := &variance.Attributor{
		Threshold:   variance.Threshold{Delta: e.Thresholds.OfferDelta},
		Key:         grid.ByOffer,
		Classifier:  e.classifier(),
		Concurrency: e.Concurrency,
	}
	flagged, err := a.Run(ctx, e.Records, e.DayNew, e.DayOld)
	if err != nil {
		return nil, err
	}
	logger.Debug("analysis: offers fluctuated", "count", len(flagged))

	newSince := e.DayNew.AddDate(0, 0, -e.Thresholds.NewBudgetDays)
	out := make([]OfferMove, len(flagged))
	err = forEach(ctx, len(flagged), e.Concurrency, func(ctx context.Context, i int) error {
		r := flagged[i]
		info, _ := e.Offers.Get(r.Entity)
		m := newOfferMove(info, r.Pair, e.DayNew, e.DayOld)
		if err := e.drillDown(ctx, &m, variance.DirectionOf(r.Delta), "\n"); err != nil {
			return err
		}
		m.StatusSummary = e.statusSummary(m)
		m.BudgetType = BudgetOld
		if first, ok := firstDate(e.offerRecords(r.Entity), nil); !ok || !first.Before(newSince) {
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

// firstDate is the earliest date among records accepted by keep (all when nil).
func firstDate(records []domain.MetricRecord, keep func(domain.MetricRecord) bool) (first time.Time, ok bool) {
	for _, r := range records {
		if keep != nil && !keep(r) {
			continue
		}
		if !ok || r.Date.Before(first) {
			first, ok = r.Date, true
		}
	}
	return first, ok
}
