// Package rollup aggregates the daily flow table by advertiser hierarchy and
// affiliate and classifies advertiser events into reject and non-reject rates.
package rollup

import (
	"sort"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// OverallTier names the portfolio row of the tier-3 totals.
const OverallTier = "总体"

// Hierarchy resolves raw advertiser accounts to their tier-2 and tier-3 groups.
type Hierarchy struct {
	tier2 map[string]string
	tier3 map[string]string
	logic map[string]string
}

// NewHierarchy indexes mappings. The first row for an advertiser wins.
func NewHierarchy(mappings []domain.AdvertiserMapping) *Hierarchy {
	h := &Hierarchy{
		tier2: make(map[string]string, len(mappings)),
		tier3: make(map[string]string, len(mappings)),
		logic: make(map[string]string, len(mappings)),
	}
	for _, m := range mappings {
		if _, ok := h.tier2[m.Advertiser]; ok {
			continue
		}
		h.tier2[m.Advertiser] = m.Tier2
		h.tier3[m.Advertiser] = m.Tier3
		h.logic[m.Advertiser] = m.TrafficLogic
	}
	return h
}

// Tier2 returns the tier-2 group of an advertiser, "" when unmapped.
func (h *Hierarchy) Tier2(advertiser string) string { return h.tier2[advertiser] }

// Tier3 returns the tier-3 group of an advertiser, "" when unmapped.
func (h *Hierarchy) Tier3(advertiser string) string { return h.tier3[advertiser] }

// TrafficLogic returns the slash separated traffic keywords of an advertiser.
func (h *Hierarchy) TrafficLogic(advertiser string) string { return h.logic[advertiser] }

// TierTotal is one row of the tier-3 day-over-day table. Ratios are
// (new-old)/old and 0 when old is 0.
type TierTotal struct {
	Tier3        string  `json:"tier3"`
	Target       float64 `json:"target"`
	RevenueNew   float64 `json:"revenue_new"`
	RevenueOld   float64 `json:"revenue_old"`
	RevenueRatio float64 `json:"revenue_ratio"`
	ProfitNew    float64 `json:"profit_new"`
	ProfitOld    float64 `json:"profit_old"`
	ProfitRatio  float64 `json:"profit_ratio"`
	MarginNew    float64 `json:"margin_new"`
	MarginOld    float64 `json:"margin_old"`
	MarginRatio  float64 `json:"margin_ratio"`
}

type flow struct {
	revenue, profit, conversions float64
}

func (f flow) margin() float64 { return variance.Margin(f.profit, f.revenue) }

type twoDays struct {
	n, o flow
}

func sumByKey(records []domain.MetricRecord, dayNew, dayOld time.Time, key func(domain.MetricRecord) string) map[string]*twoDays {
	out := make(map[string]*twoDays)
	for _, r := range records {
		d := domain.Day(r.Date)
		isNew, isOld := d.Equal(dayNew), d.Equal(dayOld)
		if !isNew && !isOld {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		t := out[k]
		if t == nil {
			t = &twoDays{}
			out[k] = t
		}
		f := &t.o
		if isNew {
			f = &t.n
		}
		f.revenue += r.Revenue
		f.profit += r.Profit
		f.conversions += r.Conversions
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func tierTotal(name string, t twoDays, target float64) TierTotal {
	return TierTotal{
		Tier3:        name,
		Target:       target,
		RevenueNew:   t.n.revenue,
		RevenueOld:   t.o.revenue,
		RevenueRatio: variance.Ratio(t.n.revenue, t.o.revenue),
		ProfitNew:    t.n.profit,
		ProfitOld:    t.o.profit,
		ProfitRatio:  variance.Ratio(t.n.profit, t.o.profit),
		MarginNew:    t.n.margin(),
		MarginOld:    t.o.margin(),
		MarginRatio:  variance.Ratio(t.n.margin(), t.o.margin()),
	}
}

// TierTotals sums revenue and profit per tier-3 advertiser on both days and
// appends the overall row. Unmapped advertisers only count towards the
// overall row.
func TierTotals(records []domain.MetricRecord, h *Hierarchy, targets []domain.DailyTarget, dayNew, dayOld time.Time) []TierTotal {
	dayNew, dayOld = domain.Day(dayNew), domain.Day(dayOld)
	goal := make(map[string]float64, len(targets))
	for _, t := range targets {
		if _, ok := goal[t.Tier3]; !ok {
			goal[t.Tier3] = t.Target
		}
	}

	byTier := sumByKey(records, dayNew, dayOld, func(r domain.MetricRecord) string { return h.Tier3(r.Advertiser) })
	out := make([]TierTotal, 0, len(byTier)+1)
	for _, k := range sortedKeys(byTier) {
		out = append(out, tierTotal(k, *byTier[k], goal[k]))
	}
	all := sumByKey(records, dayNew, dayOld, func(domain.MetricRecord) string { return OverallTier })
	var total twoDays
	if t := all[OverallTier]; t != nil {
		total = *t
	}
	return append(out, tierTotal(OverallTier, total, goal[OverallTier]))
}

// GroupRollup is one advertiser or affiliate row with its reject counts.
type GroupRollup struct {
	Key           string  `json:"key"`
	RevenueNew    float64 `json:"revenue_new"`
	RevenueOld    float64 `json:"revenue_old"`
	ProfitNew     float64 `json:"profit_new"`
	ProfitOld     float64 `json:"profit_old"`
	MarginNew     float64 `json:"margin_new"`
	MarginOld     float64 `json:"margin_old"`
	RevenueChange float64 `json:"revenue_change"`
	ProfitChange  float64 `json:"profit_change"`
	MarginChange  float64 `json:"margin_change"`
	RejectsNew    float64 `json:"rejects_new"`
	RejectsOld    float64 `json:"rejects_old"`
	RejectRateNew float64 `json:"reject_rate_new"`
	RejectRateOld float64 `json:"reject_rate_old"`
}

// AdvertiserRollup groups by tier-2 advertiser. Changes are ratios.
func AdvertiserRollup(records []domain.MetricRecord, events []ClassifiedEvent, h *Hierarchy, dayNew, dayOld time.Time) []GroupRollup {
	return groupRollup(records, events, dayNew, dayOld, 1,
		func(r domain.MetricRecord) string { return h.Tier2(r.Advertiser) },
		func(e ClassifiedEvent) string { return e.Tier2 })
}

// AffiliateRollup groups by affiliate. Changes are in percent.
func AffiliateRollup(records []domain.MetricRecord, events []ClassifiedEvent, dayNew, dayOld time.Time) []GroupRollup {
	return groupRollup(records, events, dayNew, dayOld, 100,
		func(r domain.MetricRecord) string { return r.Affiliate },
		func(e ClassifiedEvent) string { return e.Affiliate })
}

func groupRollup(records []domain.MetricRecord, events []ClassifiedEvent, dayNew, dayOld time.Time, scale float64,
	recordKey func(domain.MetricRecord) string, eventKey func(ClassifiedEvent) string) []GroupRollup {
	dayNew, dayOld = domain.Day(dayNew), domain.Day(dayOld)
	sums := sumByKey(records, dayNew, dayOld, recordKey)

	rejects := make(map[string]*[2]float64)
	for _, e := range events {
		if !e.IsReject {
			continue
		}
		k := eventKey(e)
		if k == "" {
			continue
		}
		slot := -1
		switch {
		case e.Date.Equal(dayNew):
			slot = 0
		case e.Date.Equal(dayOld):
			slot = 1
		}
		if slot < 0 {
			continue
		}
		if rejects[k] == nil {
			rejects[k] = &[2]float64{}
		}
		rejects[k][slot]++
		if sums[k] == nil {
			sums[k] = &twoDays{}
		}
	}

	out := make([]GroupRollup, 0, len(sums))
	for _, k := range sortedKeys(sums) {
		t := sums[k]
		var rj [2]float64
		if p := rejects[k]; p != nil {
			rj = *p
		}
		out = append(out, GroupRollup{
			Key:           k,
			RevenueNew:    t.n.revenue,
			RevenueOld:    t.o.revenue,
			ProfitNew:     t.n.profit,
			ProfitOld:     t.o.profit,
			MarginNew:     t.n.margin(),
			MarginOld:     t.o.margin(),
			RevenueChange: variance.Ratio(t.n.revenue, t.o.revenue) * scale,
			ProfitChange:  variance.Ratio(t.n.profit, t.o.profit) * scale,
			MarginChange:  variance.Ratio(t.n.margin(), t.o.margin()) * scale,
			RejectsNew:    rj[0],
			RejectsOld:    rj[1],
			RejectRateNew: rejectRate(rj[0], t.n.conversions),
			RejectRateOld: rejectRate(rj[1], t.o.conversions),
		})
	}
	return out
}

func rejectRate(rejects, conversions float64) float64 {
	return variance.SafeDiv(rejects, rejects+conversions)
}
