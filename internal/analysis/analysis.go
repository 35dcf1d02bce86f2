// Package analysis holds the three callers of the shared attribution step:
// day-over-day offer fluctuation, decline from the recent historical peak and
// the portfolio-level profit influence.
package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/grid"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// Env is the shared read-only input of every analysis.
type Env struct {
	Records []domain.MetricRecord
	Offers  *datanorm.OfferIndex
	DayNew  time.Time
	DayOld  time.Time
	// Today anchors the peak window; it is the run date, not the data date.
	Today       time.Time
	Thresholds  config.Thresholds
	Formatter   narrative.Formatter
	Concurrency int

	byOffer map[string][]domain.MetricRecord
}

// NewEnv indexes records by offer once for all analyses.
func NewEnv(records []domain.MetricRecord, offers *datanorm.OfferIndex, dayNew, dayOld, today time.Time, th config.Thresholds) *Env {
	if offers == nil {
		offers = datanorm.BuildOfferInfo(records, th.DefaultCap)
	}
	e := &Env{
		Records:    records,
		Offers:     offers,
		DayNew:     domain.Day(dayNew),
		DayOld:     domain.Day(dayOld),
		Today:      domain.Day(today),
		Thresholds: th,
		Formatter:  narrative.TextFormatter{},
		byOffer:    make(map[string][]domain.MetricRecord),
	}
	for _, r := range records {
		e.byOffer[r.OfferID] = append(e.byOffer[r.OfferID], r)
	}
	return e
}

func (e *Env) classifier() variance.Classifier {
	return variance.Classifier{Dominance: e.Thresholds.DominanceRatio, Epsilon: e.Thresholds.ZeroEpsilon}
}

func (e *Env) offerRecords(id string) []domain.MetricRecord {
	return e.byOffer[id]
}

func (e *Env) formatter() narrative.Formatter {
	if e.Formatter == nil {
		return narrative.TextFormatter{}
	}
	return e.Formatter
}

func label(d time.Time) string {
	if d.IsZero() {
		return "n/a"
	}
	return d.Format(domain.DateLayout)
}

// Budget age labels.
const (
	BudgetNew = "new budget"
	BudgetOld = "old budget"
)

// OfferMove is one flagged offer with its affiliate drill-down. For the peak
// analysis the old side is the offer's best day in the window.
type OfferMove struct {
	OfferID    string        `json:"offer_id"`
	AdvOfferID string        `json:"adv_offer_id"`
	Advertiser string        `json:"advertiser"`
	AppID      string        `json:"app_id"`
	Geo        string        `json:"geo"`
	Cap        float64       `json:"cap"`
	UnitPrice  float64       `json:"unit_price"`
	Status     domain.Status `json:"status"`

	NewDate        time.Time `json:"new_date"`
	OldDate        time.Time `json:"old_date"`
	OnlineHoursNew float64   `json:"online_hours_new"`
	OnlineHoursOld float64   `json:"online_hours_old"`
	RevenueNew     float64   `json:"revenue_new"`
	RevenueOld     float64   `json:"revenue_old"`
	ProfitNew      float64   `json:"profit_new"`
	ProfitOld      float64   `json:"profit_old"`
	MarginNew      float64   `json:"margin_new"`
	MarginOld      float64   `json:"margin_old"`
	Delta          float64   `json:"delta"`

	StatusSummary string                `json:"status_summary"`
	Affiliates    []narrative.Diagnosis `json:"affiliates"`
	Downstream    string                `json:"downstream"`
	BudgetType    string                `json:"budget_type"`
}

// OnlineHoursDiff is new minus old online hours.
func (m OfferMove) OnlineHoursDiff() float64 { return m.OnlineHoursNew - m.OnlineHoursOld }

func newOfferMove(info domain.OfferInfo, p variance.Pair, newDate, oldDate time.Time) OfferMove {
	return OfferMove{
		OfferID:        p.Entity,
		AdvOfferID:     info.AdvOfferID,
		Advertiser:     info.Advertiser,
		AppID:          info.AppID,
		Geo:            info.Geo,
		Cap:            info.Cap,
		UnitPrice:      info.UnitPrice,
		Status:         info.Status,
		NewDate:        newDate,
		OldDate:        oldDate,
		OnlineHoursNew: p.New.OnlineHours,
		OnlineHoursOld: p.Old.OnlineHours,
		RevenueNew:     p.New.Revenue,
		RevenueOld:     p.Old.Revenue,
		ProfitNew:      p.New.Profit,
		ProfitOld:      p.Old.Profit,
		MarginNew:      p.New.Margin(),
		MarginOld:      p.Old.Margin(),
		Delta:          p.Delta,
	}
}

// drillDown attributes the affiliates of one offer and renders their diagnoses.
func (e *Env) drillDown(ctx context.Context, m *OfferMove, dir variance.Direction, sep string) error {
	a := &variance.Attributor{
		Threshold:  variance.Threshold{Delta: e.Thresholds.AffiliateDelta, Direction: dir},
		Key:        grid.ByAffiliate,
		Classifier: e.classifier(),
	}
	results, err := a.Run(ctx, e.offerRecords(m.OfferID), m.NewDate, m.OldDate)
	if err != nil {
		return err
	}
	for _, r := range results {
		m.Affiliates = append(m.Affiliates, narrative.Diagnose(r, dir, label(m.NewDate), label(m.OldDate)))
	}
	ds := m.Affiliates
	if len(ds) == 0 {
		ds = []narrative.Diagnosis{narrative.Quiet()}
	}
	text, err := narrative.RenderAll(e.formatter(), ds, sep)
	if err != nil {
		return fmt.Errorf("offer %s: %w", m.OfferID, err)
	}
	m.Downstream = text
	return nil
}

// statusSummary explains the offer state from its status and online hours.
func (e *Env) statusSummary(m OfferMove) string {
	th := e.Thresholds
	hours := fmt.Sprintf("%s: %sh -> %s: %sh",
		label(m.OldDate), narrative.Money(m.OnlineHoursOld), label(m.NewDate), narrative.Money(m.OnlineHoursNew))
	switch m.Status {
	case domain.StatusPause:
		return "budget paused; ask the advertiser why it was paused first"
	case domain.StatusActive:
		diff := m.OnlineHoursDiff()
		switch {
		case diff >= 0 && m.Delta <= -th.StatusDropDelta:
			return fmt.Sprintf("online hours unchanged (%s) but profit dropped noticeably; focus on the affected downstream affiliates", hours)
		case diff < -th.OnlineHoursDrop && m.Delta <= -th.StatusDropDelta:
			return fmt.Sprintf("online hours dropped by more than %sh (%s); check with the advertiser whether the budget ran short",
				narrative.Money(th.OnlineHoursDrop), hours)
		}
	}
	return ""
}

// forEach runs fn for every index with bounded parallelism. fn writes to its
// own slot, so results keep input order.
func forEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return eg.Wait()
}
