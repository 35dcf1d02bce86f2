package actions

import (
	"sort"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// Rank numbers the offers of each advertiser 1..n by trailing revenue,
// descending. Ties keep first-seen order and every row of an offer shares
// its rank.
func Rank(items []domain.ActionItem) {
	type offer struct {
		advertiser, id string
		revenue        float64
	}
	var order []offer
	seen := make(map[[2]string]bool)
	for _, it := range items {
		k := [2]string{it.Advertiser, it.OfferID}
		if seen[k] {
			continue
		}
		seen[k] = true
		order = append(order, offer{it.Advertiser, it.OfferID, it.Trailing.Revenue})
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].advertiser != order[j].advertiser {
			return order[i].advertiser < order[j].advertiser
		}
		return order[i].revenue > order[j].revenue
	})

	rank := make(map[[2]string]int, len(order))
	n := 0
	for i, o := range order {
		if i == 0 || o.advertiser != order[i-1].advertiser {
			n = 0
		}
		n++
		rank[[2]string{o.advertiser, o.id}] = n
	}
	for i := range items {
		items[i].Rank = rank[[2]string{items[i].Advertiser, items[i].OfferID}]
	}
}

// AssignTiers sets the priority tier from the number of workdays so far this
// week. No tier is assigned after the third workday.
//
//	1: converting rows ranked <= limit are tier 1
//	2: budget-increase rows are tier 1, keep-sending rows ranked <= limit tier 2
//	3: redirect rows ranked <= limit are tier 1, any other row ranked <= second tier 2
func AssignTiers(items []domain.ActionItem, workdays, limit, second int) {
	for i := range items {
		it := &items[i]
		converting := it.Rule == domain.RulePushConverting && it.Rank <= limit
		increase := it.Rule == domain.RuleBudgetIncrease
		keep := it.Rule == domain.RuleKeepSending && it.Rank <= limit
		redirect := it.Rule == domain.RuleRedirect && it.Rank <= limit
		top := it.Rank <= second && !(converting || increase || keep || redirect)

		it.Tier = domain.TierNone
		switch workdays {
		case 1:
			if converting {
				it.Tier = domain.Tier1
			}
		case 2:
			if increase {
				it.Tier = domain.Tier1
			} else if keep {
				it.Tier = domain.Tier2
			}
		case 3:
			if redirect {
				it.Tier = domain.Tier1
			} else if top {
				it.Tier = domain.Tier2
			}
		}
	}
}
