// Package actions turns the trailing performance of offer budgets into a
// ranked list of operator actions per (offer, affiliate) pair.
package actions

import (
	"fmt"
	"sort"
	"time"

	"github.com/ignite/offer-diagnostics/internal/calendar"
	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/rollup"
)

// Action labels.
const (
	LabelBudgetIncrease = "ask the advertiser whether the budget can be increased"
	LabelPushConverting = "this traffic produced revenue yesterday; push traffic to fill the budget"
	LabelKeepSending    = "this traffic produced revenue in the last 30 days but not yesterday; keep pushing traffic to run the budget"
)

// Input is what one prioritization run reads.
type Input struct {
	Records      []domain.MetricRecord
	Offers       *datanorm.OfferIndex
	Hierarchy    *rollup.Hierarchy
	Blacklist    []domain.BlacklistEntry
	TrafficTypes []domain.TrafficType
	// Today selects the priority tier table; it is the run date.
	Today time.Time
}

// Prioritizer labels, filters, deduplicates, ranks and tiers action items.
type Prioritizer struct {
	Thresholds config.Thresholds
	Calendar   calendar.WorkdayChecker
}

// NewPrioritizer returns a prioritizer; a nil calendar counts weekdays only.
func NewPrioritizer(th config.Thresholds, cal calendar.WorkdayChecker) *Prioritizer {
	if cal == nil {
		cal = calendar.New("", nil, nil)
	}
	return &Prioritizer{Thresholds: th, Calendar: cal}
}

type candidate struct {
	key       offerKey
	affiliate string
	logic     string
	item      domain.ActionItem
}

// Prioritize runs the whole pipeline against the latest date in the records.
func (p *Prioritizer) Prioritize(in Input) []domain.ActionItem {
	latest, ok := latestDate(in.Records)
	if !ok {
		return nil
	}
	th := p.Thresholds
	offers := in.Offers
	if offers == nil {
		offers = datanorm.BuildOfferInfo(in.Records, th.DefaultCap)
	}
	hier := in.Hierarchy
	if hier == nil {
		hier = rollup.NewHierarchy(nil)
	}
	from := latest.AddDate(0, 0, -(th.TrailingDays - 1))
	trailing := aggregate(in.Records, offers, from, latest)
	last := aggregate(in.Records, offers, latest, latest)
	qualified := qualifiedOffers(in.Records, from, latest, th.QualifyRevenue)

	book := NewTrafficBook(in.TrafficTypes)
	bl := NewBlacklist(in.Blacklist)

	rows := p.expand(trailing, last, offers, hier, book, bl, qualified)
	logger.Debug("actions: candidate rows", "count", len(rows), "latest", latest.Format(domain.DateLayout))

	labeled, fallThrough := label(rows)
	fallThrough = redirect(fallThrough, last, book)
	items := append(labeled, dedupFallThrough(fallThrough)...)

	kept := items[:0]
	for _, it := range items {
		if !SimilarNames(it.Advertiser, it.Affiliate) {
			kept = append(kept, it)
		}
	}
	items = kept

	Rank(items)
	workdays := calendar.WorkdaysSinceMonday(p.Calendar, in.Today)
	AssignTiers(items, workdays, th.TierRankLimit, th.TierSecondRankLimit)
	logger.Debug("actions: items", "count", len(items), "workdays", workdays)
	return items
}

func latestDate(records []domain.MetricRecord) (time.Time, bool) {
	var latest time.Time
	for _, r := range records {
		if d := domain.Day(r.Date); d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero()
}

// qualifiedOffers returns offers with at least min revenue on some day of the window.
func qualifiedOffers(records []domain.MetricRecord, from, to time.Time, min float64) map[string]bool {
	type day struct {
		offer string
		date  time.Time
	}
	daily := make(map[day]float64)
	for _, r := range records {
		d := domain.Day(r.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		daily[day{r.OfferID, d}] += r.Revenue
	}
	out := make(map[string]bool)
	for k, v := range daily {
		if v >= min {
			out[k.offer] = true
		}
	}
	return out
}

// expand explodes every qualified active budget into its candidate affiliates
// and drops blacklisted pairs.
func (p *Prioritizer) expand(trailing, last *window, offers *datanorm.OfferIndex, hier *rollup.Hierarchy,
	book *TrafficBook, bl *Blacklist, qualified map[string]bool) []candidate {
	var out []candidate
	for _, k := range trailing.order {
		if !qualified[k.offer] {
			continue
		}
		status := trailing.status[k]
		if _, ok := last.offers[k]; ok {
			status = last.status[k]
		}
		if status != domain.StatusActive {
			continue
		}
		info, _ := offers.Get(k.offer)
		budget := info.Cap
		if budget <= 0 {
			budget = p.Thresholds.DefaultCap
		}
		t, l := trailing.get(k), last.get(k)
		base := domain.ActionItem{
			OfferID:            k.offer,
			AdvOfferID:         info.AdvOfferID,
			Advertiser:         k.advertiser,
			AppID:              k.app,
			Geo:                k.geo,
			UnitPrice:          info.UnitPrice,
			Cap:                budget,
			Trailing:           t.offerWindow(status),
			Latest:             l.offerWindow(status),
			RemainingCap:       budget - l.conversions,
			TrailingAffiliates: trailing.summary(k),
			LatestAffiliates:   last.summary(k),
		}

		logic := hier.TrafficLogic(k.advertiser)
		affs := book.Candidates(logic)
		if len(affs) == 0 {
			affs = []string{domain.UnknownAffiliate}
		}
		for _, a := range affs {
			if bl.Blocked(k.offer, a) {
				continue
			}
			it := base
			it.Affiliate = a
			it.AffiliateRevenueLatest = last.affiliateRevenue(k, a)
			it.AffiliateRevenueTrailing = trailing.affiliateRevenue(k, a)
			out = append(out, candidate{key: k, affiliate: a, logic: logic, item: it})
		}
	}
	return out
}

type dedupKey struct {
	offerKey
	affiliate string
	rule      domain.ActionRule
}

// label applies rules a, c and d. Rows matching none are returned separately
// when no labeled row shares their affiliate, geo and app.
func label(rows []candidate) (labeled []domain.ActionItem, fallThrough []candidate) {
	seen := make(map[dedupKey]bool)
	var pending []candidate
	for _, c := range rows {
		if c.item.RemainingCap < 0 {
			c.affiliate = ""
			c.item.Affiliate = ""
			c.item.AffiliateRevenueLatest = 0
			c.item.AffiliateRevenueTrailing = 0
			c.item.Rule = domain.RuleBudgetIncrease
			c.item.Label = LabelBudgetIncrease
		}
		k := dedupKey{c.key, c.affiliate, c.item.Rule}
		if seen[k] {
			continue
		}
		seen[k] = true

		if c.item.Rule == "" {
			switch {
			case c.item.AffiliateRevenueLatest > 0:
				c.item.Rule, c.item.Label = domain.RulePushConverting, LabelPushConverting
			case c.item.AffiliateRevenueTrailing > 0 && c.item.AffiliateRevenueLatest == 0:
				c.item.Rule, c.item.Label = domain.RuleKeepSending, LabelKeepSending
			}
		}
		pending = append(pending, c)
	}

	covered := make(map[[3]string]bool)
	for _, c := range pending {
		if c.item.Rule != "" {
			labeled = append(labeled, c.item)
			covered[[3]string{c.affiliate, c.key.geo, c.key.app}] = true
		}
	}
	for _, c := range pending {
		if c.item.Rule == "" && !covered[[3]string{c.affiliate, c.key.geo, c.key.app}] {
			fallThrough = append(fallThrough, c)
		}
	}
	return labeled, fallThrough
}

// redirect labels rule-e rows: point the traffic at this budget when the same
// affiliate, app and geo earned revenue yesterday on another offer, otherwise
// fall back to the traffic-type guidance.
func redirect(rows []candidate, last *window, book *TrafficBook) []candidate {
	type route struct{ affiliate, app, geo string }
	earners := make(map[route][]offerKey)
	for _, k := range last.order {
		if last.get(k).revenue <= 0 {
			continue
		}
		for _, a := range last.affList[k] {
			r := route{a, k.app, k.geo}
			earners[r] = append(earners[r], k)
		}
	}

	for i := range rows {
		c := &rows[i]
		mixed := isMixedTraffic(c.logic)
		col := priorityColumn(mixed)
		guidance := book.Guidance(c.affiliate, mixed)

		var best offerKey
		var bestRevenue float64
		found := false
		if c.affiliate != "" && c.affiliate != domain.UnknownAffiliate {
			for _, k := range earners[route{c.affiliate, c.key.app, c.key.geo}] {
				if k.offer == c.key.offer {
					continue
				}
				if rev := last.get(k).revenue; !found || rev > bestRevenue {
					best, bestRevenue, found = k, rev, true
				}
			}
		}
		if !found {
			c.item.Rule = domain.RulePolicy
			c.item.Label = fmt.Sprintf("follow the %s guidance: %s", col, guidance)
			continue
		}
		m := last.get(best)
		c.item.Rule = domain.RuleRedirect
		c.item.Label = fmt.Sprintf("this traffic already produced revenue on another offer with the same budget (paused or out of budget): "+
			"offer %s, app %s, geo %s, advertiser %s, yesterday revenue %s USD (clicks %.0f, conversions %.0f, cost %s, profit %s); "+
			"ask the affiliate to push the new budget following the %s guidance: %s",
			best.offer, best.app, best.geo, best.advertiser, narrative.Money(m.revenue),
			m.clicks, m.conversions, narrative.Money(m.cost), narrative.Money(m.profit), col, guidance)
	}
	return rows
}

// dedupFallThrough keeps, per (affiliate, app, geo), the rule-e row with the
// highest trailing revenue.
func dedupFallThrough(rows []candidate) []domain.ActionItem {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.affiliate != b.affiliate {
			return a.affiliate < b.affiliate
		}
		if a.key.app != b.key.app {
			return a.key.app < b.key.app
		}
		if a.key.geo != b.key.geo {
			return a.key.geo < b.key.geo
		}
		return a.item.Trailing.Revenue > b.item.Trailing.Revenue
	})
	out := make([]domain.ActionItem, 0, len(rows))
	seen := make(map[[3]string]bool)
	for _, c := range rows {
		k := [3]string{c.affiliate, c.key.app, c.key.geo}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c.item)
	}
	return out
}
