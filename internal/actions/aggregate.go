package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// offerKey identifies one budget: an offer under one advertiser, app and geo.
type offerKey struct {
	offer, advertiser, app, geo string
}

type affKey struct {
	offerKey
	affiliate string
}

type totals struct {
	clicks, conversions, revenue, cost, profit float64
}

func (t *totals) add(r domain.MetricRecord) {
	t.clicks += r.Clicks
	t.conversions += r.Conversions
	t.revenue += r.Revenue
	t.cost += r.Cost
	t.profit += r.Profit
}

// window is the aggregate of one period (latest day or trailing window).
type window struct {
	order   []offerKey
	offers  map[offerKey]*totals
	status  map[offerKey]domain.Status
	affs    map[affKey]*totals
	affList map[offerKey][]string
}

func newWindow() *window {
	return &window{
		offers:  make(map[offerKey]*totals),
		status:  make(map[offerKey]domain.Status),
		affs:    make(map[affKey]*totals),
		affList: make(map[offerKey][]string),
	}
}

// keyOf fills missing app and geo from offer base info, then with the unknown marker.
func keyOf(r domain.MetricRecord, offers *datanorm.OfferIndex) offerKey {
	k := offerKey{offer: r.OfferID, advertiser: r.Advertiser, app: r.AppID, geo: r.Geo}
	if info, ok := offers.Get(r.OfferID); ok {
		if k.app == "" {
			k.app = info.AppID
		}
		if k.geo == "" {
			k.geo = info.Geo
		}
	}
	if k.app == "" {
		k.app = domain.UnknownAffiliate
	}
	if k.geo == "" {
		k.geo = domain.UnknownAffiliate
	}
	return k
}

// aggregate sums records dated within [from, to] per budget and per affiliate.
func aggregate(records []domain.MetricRecord, offers *datanorm.OfferIndex, from, to time.Time) *window {
	w := newWindow()
	for _, r := range records {
		d := domain.Day(r.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		k := keyOf(r, offers)
		t := w.offers[k]
		if t == nil {
			t = &totals{}
			w.offers[k] = t
			w.order = append(w.order, k)
			w.status[k] = domain.StatusUnknown
		}
		t.add(r)
		if w.status[k] == domain.StatusUnknown && r.Status != domain.StatusUnknown && r.Status != "" {
			w.status[k] = r.Status
		}

		ak := affKey{k, r.Affiliate}
		at := w.affs[ak]
		if at == nil {
			at = &totals{}
			w.affs[ak] = at
			w.affList[k] = append(w.affList[k], r.Affiliate)
		}
		at.add(r)
	}
	return w
}

func (w *window) get(k offerKey) totals {
	if t := w.offers[k]; t != nil {
		return *t
	}
	return totals{}
}

func (w *window) affiliateRevenue(k offerKey, affiliate string) float64 {
	if t := w.affs[affKey{k, affiliate}]; t != nil {
		return t.revenue
	}
	return 0
}

// summary renders one line per affiliate of a budget.
func (w *window) summary(k offerKey) string {
	total := w.get(k)
	lines := make([]string, 0, len(w.affList[k]))
	for _, a := range w.affList[k] {
		t := w.affs[affKey{k, a}]
		lines = append(lines, fmt.Sprintf("Affiliate: %s | Clicks: %.0f | Conversions: %.0f | CR: %.4f | Cost: %.2f | Profit: %.2f | Revenue share: %.4f",
			a, t.clicks, t.conversions, variance.SafeDiv(t.conversions, t.clicks), t.cost, t.profit, variance.SafeDiv(t.revenue, total.revenue)))
	}
	return strings.Join(lines, "\n")
}

func (t totals) offerWindow(status domain.Status) domain.OfferWindow {
	return domain.OfferWindow{
		Clicks:      t.clicks,
		Conversions: t.conversions,
		Revenue:     t.revenue,
		Cost:        t.cost,
		Profit:      t.profit,
		Status:      status,
	}
}
