package rollup

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// ShiftedRejectTier reports reject events one day late; they are moved back
// to the day the conversion happened.
const ShiftedRejectTier = "Appnext"

var offerIDPattern = regexp.MustCompile(`\[(\d+)\]`)

// OfferIDFromName extracts the digits in the first "[...]" of an offer name.
func OfferIDFromName(name string) string {
	if m := offerIDPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

// ClassifiedEvent is an advertiser event placed in the hierarchy and tagged
// as reject or not.
type ClassifiedEvent struct {
	domain.Event
	OfferID  string `json:"offer_id"`
	IsReject bool   `json:"is_reject"`
	Tier2    string `json:"tier2"`
	Tier3    string `json:"tier3"`
}

// ClassifyEvents drops nameless events, looks up the reject rule of each
// (missing rule means not a reject) and resolves the advertiser hierarchy.
func ClassifyEvents(events []domain.Event, rules []domain.RejectRule, h *Hierarchy) []ClassifiedEvent {
	reject := make(map[string]bool, len(rules))
	for _, r := range rules {
		if _, ok := reject[r.Event]; !ok {
			reject[r.Event] = r.IsReject
		}
	}
	out := make([]ClassifiedEvent, 0, len(events))
	for _, e := range events {
		if strings.TrimSpace(e.Event) == "" {
			continue
		}
		c := ClassifiedEvent{
			Event:    e,
			OfferID:  OfferIDFromName(e.OfferName),
			IsReject: reject[e.Event],
			Tier2:    h.Tier2(e.Advertiser),
			Tier3:    h.Tier3(e.Advertiser),
		}
		c.Date = domain.Day(e.Date)
		if c.IsReject && c.Tier3 == ShiftedRejectTier {
			c.Date = c.Date.AddDate(0, 0, -1)
		}
		out = append(out, c)
	}
	return out
}

// RejectRow is the reject rate of one affiliate on one offer and day next
// to the offer's overall reject rate that day.
type RejectRow struct {
	Date            time.Time `json:"date"`
	OfferID         string    `json:"offer_id"`
	AdvOfferID      string    `json:"adv_offer_id"`
	Advertiser      string    `json:"advertiser"`
	AppID           string    `json:"app_id"`
	Geo             string    `json:"geo"`
	Affiliate       string    `json:"affiliate"`
	Rejects         float64   `json:"rejects"`
	Conversions     float64   `json:"conversions"`
	RejectRate      float64   `json:"reject_rate"`
	OfferRejectRate float64   `json:"offer_reject_rate"`
}

// EventRow is the rate of one non-reject event per conversion for an
// affiliate on one offer and day, next to the offer's overall rate.
type EventRow struct {
	Date           time.Time `json:"date"`
	OfferID        string    `json:"offer_id"`
	AdvOfferID     string    `json:"adv_offer_id"`
	Advertiser     string    `json:"advertiser"`
	AppID          string    `json:"app_id"`
	Geo            string    `json:"geo"`
	Affiliate      string    `json:"affiliate"`
	Event          string    `json:"event"`
	Events         float64   `json:"events"`
	Conversions    float64   `json:"conversions"`
	EventRate      float64   `json:"event_rate"`
	OfferEventRate float64   `json:"offer_event_rate"`
}

type offerDay struct {
	date  time.Time
	offer string
}

type affDay struct {
	offerDay
	affiliate string
}

type eventKey struct {
	affDay
	event string
}

type offerDayEvent struct {
	offerDay
	event string
}

type dims struct {
	advertiser, appID, geo string
}

// conversionIndex sums conversions per offer day and per offer affiliate day.
type conversionIndex struct {
	offer     map[offerDay]float64
	affiliate map[affDay]float64
	dims      map[affDay]dims
}

func indexConversions(records []domain.MetricRecord) conversionIndex {
	ix := conversionIndex{
		offer:     make(map[offerDay]float64),
		affiliate: make(map[affDay]float64),
		dims:      make(map[affDay]dims),
	}
	for _, r := range records {
		od := offerDay{domain.Day(r.Date), r.OfferID}
		ad := affDay{od, r.Affiliate}
		ix.offer[od] += r.Conversions
		ix.affiliate[ad] += r.Conversions
		if _, ok := ix.dims[ad]; !ok {
			ix.dims[ad] = dims{r.Advertiser, r.AppID, r.Geo}
		}
	}
	return ix
}

// backfill prefers the offer base info over the flow row dimensions.
func backfill(offers *datanorm.OfferIndex, id string, d dims) (advOfferID string, out dims) {
	out = d
	if offers == nil {
		return "", out
	}
	info, ok := offers.Get(id)
	if !ok {
		return "", out
	}
	if info.Advertiser != "" {
		out.advertiser = info.Advertiser
	}
	if info.AppID != "" {
		out.appID = info.AppID
	}
	if info.Geo != "" {
		out.geo = info.Geo
	}
	return info.AdvOfferID, out
}

// EventAnalysis computes the reject and non-reject event tables.
func EventAnalysis(records []domain.MetricRecord, events []ClassifiedEvent, offers *datanorm.OfferIndex) ([]RejectRow, []EventRow) {
	conv := indexConversions(records)

	offerRejects := make(map[offerDay]float64)
	affRejects := make(map[affDay]float64)
	offerEvents := make(map[offerDayEvent]float64)
	affEvents := make(map[eventKey]float64)
	for _, e := range events {
		od := offerDay{e.Date, e.OfferID}
		ad := affDay{od, e.Affiliate}
		if e.IsReject {
			offerRejects[od]++
			affRejects[ad]++
			continue
		}
		offerEvents[offerDayEvent{od, e.Event.Event}]++
		affEvents[eventKey{ad, e.Event.Event}]++
	}

	rejects := make([]RejectRow, 0, len(affRejects))
	for ad, n := range affRejects {
		c := conv.affiliate[ad]
		advOffer, d := backfill(offers, ad.offer, conv.dims[ad])
		total := offerRejects[ad.offerDay]
		rejects = append(rejects, RejectRow{
			Date:            ad.date,
			OfferID:         ad.offer,
			AdvOfferID:      advOffer,
			Advertiser:      d.advertiser,
			AppID:           d.appID,
			Geo:             d.geo,
			Affiliate:       ad.affiliate,
			Rejects:         n,
			Conversions:     c,
			RejectRate:      rejectRate(n, c),
			OfferRejectRate: rejectRate(total, conv.offer[ad.offerDay]),
		})
	}
	sort.Slice(rejects, func(i, j int) bool {
		a, b := rejects[i], rejects[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.OfferID != b.OfferID {
			return a.OfferID < b.OfferID
		}
		return a.Affiliate < b.Affiliate
	})

	rates := make([]EventRow, 0, len(affEvents))
	for k, n := range affEvents {
		c := conv.affiliate[k.affDay]
		advOffer, d := backfill(offers, k.offer, conv.dims[k.affDay])
		total := offerEvents[offerDayEvent{k.offerDay, k.event}]
		rates = append(rates, EventRow{
			Date:           k.date,
			OfferID:        k.offer,
			AdvOfferID:     advOffer,
			Advertiser:     d.advertiser,
			AppID:          d.appID,
			Geo:            d.geo,
			Affiliate:      k.affiliate,
			Event:          k.event,
			Events:         n,
			Conversions:    c,
			EventRate:      variance.SafeDiv(n, c),
			OfferEventRate: variance.SafeDiv(total, conv.offer[k.offerDay]),
		})
	}
	sort.Slice(rates, func(i, j int) bool {
		a, b := rates[i], rates[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.OfferID != b.OfferID {
			return a.OfferID < b.OfferID
		}
		if a.Affiliate != b.Affiliate {
			return a.Affiliate < b.Affiliate
		}
		return a.Event < b.Event
	})
	return rejects, rates
}
