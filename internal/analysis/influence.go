package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/grid"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// Trend is the sign of the portfolio profit move.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// AffiliateImpact is one affiliate's profit delta under a core offer.
type AffiliateImpact struct {
	Affiliate string  `json:"affiliate"`
	Delta     float64 `json:"delta"`
}

// CoreOffer is an offer singled out as carrying the portfolio move.
type CoreOffer struct {
	OfferID       string            `json:"offer_id"`
	Advertiser    string            `json:"advertiser"`
	AdvOfferID    string            `json:"adv_offer_id"`
	AppID         string            `json:"app_id"`
	Geo           string            `json:"geo"`
	Delta         float64           `json:"delta"`
	RevenueDriven float64           `json:"revenue_driven"`
	MarginDriven  float64           `json:"margin_driven"`
	Affiliates    []AffiliateImpact `json:"affiliates"`
}

// Influence is the portfolio-level explanation of the day-over-day move.
type Influence struct {
	DayNew time.Time `json:"day_new"`
	DayOld time.Time `json:"day_old"`

	RevenueNew  float64 `json:"revenue_new"`
	RevenueOld  float64 `json:"revenue_old"`
	ProfitNew   float64 `json:"profit_new"`
	ProfitOld   float64 `json:"profit_old"`
	MarginNew   float64 `json:"margin_new"`
	MarginOld   float64 `json:"margin_old"`
	RevenuePct  float64 `json:"revenue_pct"`
	ProfitPct   float64 `json:"profit_pct"`
	MarginPct   float64 `json:"margin_pct"`
	ProfitDelta float64 `json:"profit_delta"`

	Stable       bool                  `json:"stable"`
	Contribution variance.Contribution `json:"contribution"`
	Driver       variance.Driver       `json:"driver"`
	Trend        Trend                 `json:"trend"`
	CoreOffers   []CoreOffer           `json:"core_offers"`
	Conclusion   string                `json:"conclusion"`
}

// ProfitInfluence decomposes the portfolio move. A stable day yields the
// single stability message and no offer or affiliate drill-down.
func ProfitInfluence(ctx context.Context, e *Env) (*Influence, error) {
	if e.DayNew.IsZero() || e.DayOld.IsZero() {
		return nil, nil
	}
	th := e.Thresholds
	g := grid.Build(e.Records, grid.ByAll, []time.Time{e.DayNew, e.DayOld})
	total := variance.Compare(g, e.DayNew, e.DayOld)
	var p variance.Pair
	if len(total) > 0 {
		p = total[0]
	}

	inf := &Influence{
		DayNew:      e.DayNew,
		DayOld:      e.DayOld,
		RevenueNew:  p.New.Revenue,
		RevenueOld:  p.Old.Revenue,
		ProfitNew:   p.New.Profit,
		ProfitOld:   p.Old.Profit,
		MarginNew:   p.New.Margin(),
		MarginOld:   p.Old.Margin(),
		RevenuePct:  variance.PctChange(p.New.Revenue, p.Old.Revenue),
		ProfitPct:   variance.PctChange(p.New.Profit, p.Old.Profit),
		MarginPct:   variance.PctChange(p.New.Margin(), p.Old.Margin()),
		ProfitDelta: p.Delta,
		Driver:      variance.DriverNone,
		Trend:       TrendFlat,
	}
	inf.Stable = variance.IsStable(p.Old.Profit, p.New.Profit, th.GlobalStablePct)

	if inf.Stable {
		d := narrative.Stable(inf.ProfitPct, th.GlobalStablePct, label(e.DayNew), label(e.DayOld))
		text, err := e.formatter().Render(d)
		if err != nil {
			return nil, err
		}
		inf.Conclusion = inf.baseline() + "; " + text
		return inf, nil
	}

	inf.Contribution = variance.Decompose(p.Old.Revenue, p.Old.Profit, p.New.Revenue, p.New.Profit)
	inf.Driver = e.classifier().Classify(inf.Contribution)
	switch {
	case p.Delta > 0:
		inf.Trend = TrendUp
	case p.Delta < 0:
		inf.Trend = TrendDown
	}

	if inf.Trend != TrendFlat && inf.Driver != variance.DriverNone {
		core, err := e.coreOffers(ctx, inf.Trend)
		if err != nil {
			return nil, err
		}
		inf.CoreOffers = core
	}
	inf.Conclusion = inf.conclusion()
	return inf, nil
}

func (e *Env) coreOffers(ctx context.Context, trend Trend) ([]CoreOffer, error) {
	th := e.Thresholds
	recent := make([]domain.MetricRecord, 0, len(e.Records))
	for _, r := range e.Records {
		if d := domain.Day(r.Date); d.Equal(e.DayNew) || d.Equal(e.DayOld) {
			recent = append(recent, r)
		}
	}
	pairs := variance.Compare(grid.Build(recent, grid.ByOffer, []time.Time{e.DayNew, e.DayOld}), e.DayNew, e.DayOld)

	offers := make([]CoreOffer, len(pairs))
	var sum float64
	for i, p := range pairs {
		c := variance.Decompose(p.Old.Revenue, p.Old.Profit, p.New.Revenue, p.New.Profit)
		offers[i] = CoreOffer{
			OfferID:       p.Entity,
			Advertiser:    p.Attrs.Advertiser,
			AdvOfferID:    p.Attrs.AdvOfferID,
			AppID:         p.Attrs.AppID,
			Geo:           p.Attrs.Geo,
			Delta:         p.Delta,
			RevenueDriven: c.Revenue,
			MarginDriven:  c.Margin,
		}
		sum += p.Delta
	}
	if math.Abs(sum) < th.ZeroEpsilon {
		return nil, nil
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if trend == TrendDown {
			return offers[i].Delta < offers[j].Delta
		}
		return offers[i].Delta > offers[j].Delta
	})

	var core []CoreOffer
	for _, o := range offers {
		if (trend == TrendDown && o.RevenueDriven < -th.InfluenceOfferDelta) ||
			(trend == TrendUp && o.RevenueDriven >= th.InfluenceOfferDelta) {
			core = append(core, o)
		}
	}
	if len(core) == 0 {
		var cum float64
		for _, o := range offers {
			cum += math.Abs(o.Delta)
			if cum/math.Abs(sum)*100 > th.InfluenceCumulativePct || len(core) >= th.InfluenceMaxOffers {
				break
			}
			core = append(core, o)
		}
	}

	err := forEach(ctx, len(core), e.Concurrency, func(ctx context.Context, i int) error {
		var records []domain.MetricRecord
		for _, r := range e.offerRecords(core[i].OfferID) {
			if d := domain.Day(r.Date); d.Equal(e.DayNew) || d.Equal(e.DayOld) {
				records = append(records, r)
			}
		}
		for _, p := range variance.Compare(grid.Build(records, grid.ByAffiliate, []time.Time{e.DayNew, e.DayOld}), e.DayNew, e.DayOld) {
			core[i].Affiliates = append(core[i].Affiliates, AffiliateImpact{Affiliate: p.Entity, Delta: p.Delta})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return core, nil
}

func (inf *Influence) baseline() string {
	return fmt.Sprintf("revenue %s USD (%s), %s vs %s (%s USD); profit %s USD, %s vs %s (%s USD); margin %.4f, %s vs %s (%.4f)",
		narrative.Money(inf.RevenueNew), label(inf.DayNew), narrative.Points(inf.RevenuePct), label(inf.DayOld),
		narrative.Money(inf.RevenueNew-inf.RevenueOld),
		narrative.Money(inf.ProfitNew), narrative.Points(inf.ProfitPct), label(inf.DayOld), narrative.Money(inf.ProfitDelta),
		inf.MarginNew, narrative.Points(inf.MarginPct), label(inf.DayOld), inf.MarginNew-inf.MarginOld)
}

func (inf *Influence) conclusion() string {
	var b strings.Builder
	b.WriteString(inf.baseline())
	fmt.Fprintf(&b, "; revenue change contributed %s USD and margin change %s USD; profit went %s from %s to %s, driven by %s",
		narrative.Money(inf.Contribution.Revenue), narrative.Money(inf.Contribution.Margin),
		inf.Trend, label(inf.DayOld), label(inf.DayNew), driverText(inf.Driver))

	if len(inf.CoreOffers) == 0 {
		b.WriteString("; no core offers found for the move.")
		return b.String()
	}
	order := "ascending"
	if inf.Trend == TrendUp {
		order = "descending"
	}
	fmt.Fprintf(&b, "; core offers (profit delta %s): ", order)
	for i, o := range inf.CoreOffers {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "offer %s (advertiser %s, adv offer %s, app %s, geo %s) %s USD (revenue %s USD, margin %s USD)",
			o.OfferID, o.Advertiser, o.AdvOfferID, o.AppID, o.Geo,
			narrative.Money(o.Delta), narrative.Money(o.RevenueDriven), narrative.Money(o.MarginDriven))
		if len(o.Affiliates) > 0 {
			parts := make([]string, 0, len(o.Affiliates))
			for _, a := range o.Affiliates {
				parts = append(parts, fmt.Sprintf("%s %s USD", a.Affiliate, narrative.Money(a.Delta)))
			}
			b.WriteString(", affiliates: " + strings.Join(parts, ", "))
		}
	}
	b.WriteString(".")
	return b.String()
}

func driverText(d variance.Driver) string {
	switch d {
	case variance.DriverRevenue:
		return "the revenue change"
	case variance.DriverMargin:
		return "the margin change"
	case variance.DriverCombined:
		return "both revenue and margin changes"
	default:
		return "no clear factor"
	}
}
