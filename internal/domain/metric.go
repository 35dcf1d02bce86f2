package domain

import (
	"sort"
	"strings"
	"time"
)

// Status enumerates the delivery state of an offer on a given day.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusPause   Status = "PAUSE"
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus maps a raw status cell onto a Status. Anything unrecognised is UNKNOWN.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE":
		return StatusActive
	case "PAUSE", "PAUSED":
		return StatusPause
	default:
		return StatusUnknown
	}
}

// DateLayout is the canonical day format used in keys and output labels.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MetricRecord is one row of the daily performance table: the metrics of one
// offer/affiliate combination on one day.
type MetricRecord struct {
	OfferID     string    `json:"offer_id" db:"offer_id"`
	AdvOfferID  string    `json:"adv_offer_id" db:"adv_offer_id"`
	Advertiser  string    `json:"advertiser" db:"advertiser"`
	AppID       string    `json:"app_id" db:"app_id"`
	Geo         string    `json:"geo" db:"geo"`
	Affiliate   string    `json:"affiliate" db:"affiliate"`
	Date        time.Time `json:"date" db:"date"`
	Clicks      float64   `json:"clicks" db:"clicks"`
	Conversions float64   `json:"conversions" db:"conversions"`
	Revenue     float64   `json:"revenue" db:"revenue"`
	Cost        float64   `json:"cost" db:"cost"`
	Profit      float64   `json:"profit" db:"profit"`
	OnlineHours float64   `json:"online_hours" db:"online_hours"`
	Status      Status    `json:"status" db:"status"`
	Cap         float64   `json:"cap" db:"cap"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
}

// DefaultCap is applied when a record carries no usable cap.
const DefaultCap = 100

// UnknownAffiliate labels traffic whose source could not be resolved.
const UnknownAffiliate = "未知"

// OfferInfo holds the dimension attributes of an offer that do not change
// from day to day. Each field is the first non-empty value seen for the offer.
type OfferInfo struct {
	OfferID    string  `json:"offer_id"`
	AdvOfferID string  `json:"adv_offer_id"`
	Advertiser string  `json:"advertiser"`
	AppID      string  `json:"app_id"`
	Geo        string  `json:"geo"`
	Cap        float64 `json:"cap"`
	Status     Status  `json:"status"`
	UnitPrice  float64 `json:"unit_price"`
}

// Input is the full normalized input of one report run.
type Input struct {
	Metrics      []MetricRecord      `json:"metrics"`
	Advertisers  []AdvertiserMapping `json:"advertisers"`
	RejectRules  []RejectRule        `json:"reject_rules"`
	Events       []Event             `json:"events"`
	Targets      []DailyTarget       `json:"targets"`
	Blacklist    []BlacklistEntry    `json:"blacklist"`
	TrafficTypes []TrafficType       `json:"traffic_types"`
}

// Dates returns the distinct days present in the metric table, newest first.
func (in *Input) Dates() []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, r := range in.Metrics {
		d := Day(r.Date)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}
