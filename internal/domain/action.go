package domain

// ActionRule identifies which labeling rule produced an action item.
type ActionRule string

const (
	RuleBudgetIncrease ActionRule = "a"
	RulePushConverting ActionRule = "c"
	RuleKeepSending    ActionRule = "d"
	RuleRedirect       ActionRule = "e-redirect"
	RulePolicy         ActionRule = "e-policy"
)

// FallThrough reports whether the rule is one of the rule-e outcomes.
func (r ActionRule) FallThrough() bool {
	return r == RuleRedirect || r == RulePolicy
}

// Tier is the calendar-dependent priority of an action item.
type Tier string

const (
	TierNone Tier = ""
	Tier1    Tier = "tier1"
	Tier2    Tier = "tier2"
)

// ActionItem is one recommended operator action for an offer/affiliate pair.
type ActionItem struct {
	OfferID    string `json:"offer_id" db:"offer_id"`
	AdvOfferID string `json:"adv_offer_id" db:"adv_offer_id"`
	Advertiser string `json:"advertiser" db:"advertiser"`
	AppID      string `json:"app_id" db:"app_id"`
	Geo        string `json:"geo" db:"geo"`
	Affiliate  string `json:"affiliate" db:"affiliate"`

	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	Cap       float64 `json:"cap" db:"cap"`

	Trailing OfferWindow `json:"trailing"`
	Latest   OfferWindow `json:"latest"`

	AffiliateRevenueLatest   float64 `json:"affiliate_revenue_latest" db:"affiliate_revenue_latest"`
	AffiliateRevenueTrailing float64 `json:"affiliate_revenue_trailing" db:"affiliate_revenue_trailing"`
	RemainingCap             float64 `json:"remaining_cap" db:"remaining_cap"`

	// TrailingAffiliates and LatestAffiliates list the per-affiliate split of
	// the budget, one line per affiliate.
	TrailingAffiliates string `json:"trailing_affiliates" db:"-"`
	LatestAffiliates   string `json:"latest_affiliates" db:"-"`

	Rule  ActionRule `json:"rule" db:"rule"`
	Label string     `json:"label" db:"label"`
	Rank  int        `json:"rank" db:"rank"`
	Tier  Tier       `json:"priority_tier" db:"priority_tier"`
}

// OfferWindow aggregates an offer's metrics over a period (latest day or
// trailing window).
type OfferWindow struct {
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
	Profit      float64 `json:"profit"`
	Status      Status  `json:"status"`
}

// CR is conversions over clicks, 0 without clicks.
func (w OfferWindow) CR() float64 {
	if w.Clicks <= 0 {
		return 0
	}
	return w.Conversions / w.Clicks
}
