package actions

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// Priority column titles of the traffic-type sheet, used in the guidance text.
const (
	PurePriorityColumn  = "纯xdj新预算推量优先级"
	MixedPriorityColumn = "非100%xdj新预算推量优先级"
)

// NoPriorityGuidance replaces an empty priority cell.
const NoPriorityGuidance = "no explicit priority guidance"

func fold(s string) string { return cases.Fold().String(s) }

// isMixedTraffic reports whether the advertiser's traffic logic asks for in-app traffic.
func isMixedTraffic(logic string) bool {
	norm := fold(strings.ReplaceAll(logic, " ", ""))
	return strings.Contains(norm, fold(domain.InAppTrafficMarker))
}

func priorityColumn(mixed bool) string {
	if mixed {
		return MixedPriorityColumn
	}
	return PurePriorityColumn
}

// TrafficBook is the traffic-type sheet indexed for matching.
type TrafficBook struct {
	rows  []domain.TrafficType
	first map[string]domain.TrafficType
}

// NewTrafficBook keeps rows in sheet order.
func NewTrafficBook(rows []domain.TrafficType) *TrafficBook {
	b := &TrafficBook{rows: rows, first: make(map[string]domain.TrafficType, len(rows))}
	for _, r := range rows {
		if _, ok := b.first[r.Affiliate]; !ok {
			b.first[r.Affiliate] = r
		}
	}
	return b
}

// Candidates returns the affiliates whose category contains one of the
// slash separated keywords of logic, skipping those marked do-not-contact in
// the priority column that applies.
func (b *TrafficBook) Candidates(logic string) []string {
	var keywords []string
	for _, k := range strings.Split(logic, "/") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	mixed := isMixedTraffic(logic)
	var out []string
	for _, r := range b.rows {
		if !containsAny(r.Category, keywords) {
			continue
		}
		prio := r.PurePriority
		if mixed {
			prio = r.MixedPriority
		}
		if strings.TrimSpace(prio) == domain.PriorityDoNotContact {
			continue
		}
		out = append(out, r.Affiliate)
	}
	return out
}

// Guidance is the priority text of the first row for affiliate.
func (b *TrafficBook) Guidance(affiliate string, mixed bool) string {
	if affiliate == "" || affiliate == domain.UnknownAffiliate {
		return NoPriorityGuidance
	}
	r, ok := b.first[affiliate]
	if !ok {
		return NoPriorityGuidance
	}
	text := r.PurePriority
	if mixed {
		text = r.MixedPriority
	}
	if strings.TrimSpace(text) == "" {
		return NoPriorityGuidance
	}
	return text
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Blacklist holds blocked offers and blocked (offer, affiliate) pairs.
type Blacklist struct {
	offers map[string]bool
	pairs  map[[2]string]bool
}

// NewBlacklist indexes entries; BlacklistAll blocks the whole offer.
func NewBlacklist(entries []domain.BlacklistEntry) *Blacklist {
	bl := &Blacklist{offers: make(map[string]bool), pairs: make(map[[2]string]bool)}
	for _, e := range entries {
		if e.Affiliate == domain.BlacklistAll {
			bl.offers[e.OfferID] = true
			continue
		}
		bl.pairs[[2]string{e.OfferID, e.Affiliate}] = true
	}
	return bl
}

// Blocked reports whether the pair may not receive a recommendation.
func (bl *Blacklist) Blocked(offerID, affiliate string) bool {
	return bl.offers[offerID] || bl.pairs[[2]string{offerID, affiliate}]
}

// similarPair is always treated as the same party.
var similarPair = [2]string{"leapmob", "metabits"}

// SimilarNames reports whether an advertiser and an affiliate are likely the
// same party: one folded name contains the other, or both form the named pair.
// Empty names are never similar.
func SimilarNames(advertiser, affiliate string) bool {
	adv := fold(strings.TrimSpace(advertiser))
	aff := fold(strings.TrimSpace(affiliate))
	if adv == "" || aff == "" {
		return false
	}
	if strings.Contains(adv, aff) || strings.Contains(aff, adv) {
		return true
	}
	return (adv == similarPair[0] && aff == similarPair[1]) || (adv == similarPair[1] && aff == similarPair[0])
}
