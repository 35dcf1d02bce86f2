package domain

import "time"

// AdvertiserMapping places a raw advertiser account in the tier hierarchy and
// carries the traffic-matching logic used to pick candidate affiliates.
type AdvertiserMapping struct {
	Advertiser   string `json:"advertiser"`
	Tier2        string `json:"tier2"`
	Tier3        string `json:"tier3"`
	TrafficLogic string `json:"traffic_logic"`
}

// RejectRule classifies an advertiser event name.
type RejectRule struct {
	Event    string `json:"event"`
	IsReject bool   `json:"is_reject"`
}

// DailyTarget is the monthly average daily revenue target of a tier-3 advertiser.
type DailyTarget struct {
	Tier3  string  `json:"tier3"`
	Target float64 `json:"target"`
}

// BlacklistAll in the affiliate column blocks every affiliate of the offer.
const BlacklistAll = "All"

// BlacklistEntry blocks one (offer, affiliate) pair, or the whole offer when
// Affiliate is BlacklistAll.
type BlacklistEntry struct {
	OfferID   string `json:"offer_id"`
	Affiliate string `json:"affiliate"`
}

// Traffic policy sentinels found in the traffic-type sheet.
const (
	PriorityDoNotContact = "不沟通"
	InAppTrafficMarker   = "inapp流量"
)

// TrafficType describes an affiliate's traffic category and the operator
// guidance for pushing new budgets to it.
type TrafficType struct {
	Affiliate string `json:"affiliate"`
	Category  string `json:"category"`
	// PurePriority is the guidance for pure xdj traffic.
	PurePriority string `json:"pure_priority"`
	// MixedPriority is the guidance for non-100% xdj (in-app) traffic.
	MixedPriority string `json:"mixed_priority"`
}

// Event is a post-install advertiser event attributed to an offer.
type Event struct {
	Date       time.Time `json:"date"`
	OfferName  string    `json:"offer_name"`
	Advertiser string    `json:"advertiser"`
	Affiliate  string    `json:"affiliate"`
	Event      string    `json:"event"`
}
