// Package narrative turns classified variance results into structured
// diagnoses and renders them to text through a swappable Formatter.
package narrative

import (
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// Kind is the diagnosis variant.
type Kind string

const (
	KindStopped    Kind = "stopped"
	KindNewRevenue Kind = "new-revenue"
	KindRevenue    Kind = "revenue-driven"
	KindMargin     Kind = "margin-driven"
	KindCombined   Kind = "combined"
	// KindFlat is a crossing whose contributions cancel out to nothing.
	KindFlat Kind = "flat"
	// KindStable replaces the whole drill-down on a stable day.
	KindStable Kind = "stable"
	// KindQuiet is emitted when nothing below a flagged entity moved.
	KindQuiet Kind = "quiet"
)

// Diagnosis is one explained profit move.
type Diagnosis struct {
	Kind      Kind               `json:"kind"`
	Subject   string             `json:"subject"`
	Direction variance.Direction `json:"direction"`
	NewLabel  string             `json:"new_label"`
	OldLabel  string             `json:"old_label"`

	Delta       float64 `json:"delta"`
	ProfitOld   float64 `json:"profit_old"`
	ProfitNew   float64 `json:"profit_new"`
	RevenueOld  float64 `json:"revenue_old"`
	RevenueNew  float64 `json:"revenue_new"`
	ClicksOld   float64 `json:"clicks_old"`
	ClicksNew   float64 `json:"clicks_new"`
	CROld       float64 `json:"cr_old"`
	CRNew       float64 `json:"cr_new"`
	MarginOld   float64 `json:"margin_old"`
	MarginNew   float64 `json:"margin_new"`
	RevenuePct  float64 `json:"revenue_pct"`
	ClicksPct   float64 `json:"clicks_pct"`
	CRPct       float64 `json:"cr_pct"`
	RevenueMove float64 `json:"revenue_move"`

	RevenueContrib float64         `json:"revenue_contrib"`
	MarginContrib  float64         `json:"margin_contrib"`
	Driver         variance.Driver `json:"driver"`

	// PctChange and StablePct are set for KindStable.
	PctChange float64 `json:"pct_change,omitempty"`
	StablePct float64 `json:"stable_pct,omitempty"`
}

// Diagnose picks the variant for r. The stopped check applies to declines and
// the new-revenue check to rises; everything else follows the dominant driver.
func Diagnose(r variance.Result, dir variance.Direction, newLabel, oldLabel string) Diagnosis {
	d := Diagnosis{
		Subject:        r.Entity,
		Direction:      dir,
		NewLabel:       newLabel,
		OldLabel:       oldLabel,
		Delta:          r.Delta,
		ProfitOld:      r.Old.Profit,
		ProfitNew:      r.New.Profit,
		RevenueOld:     r.Old.Revenue,
		RevenueNew:     r.New.Revenue,
		ClicksOld:      r.Old.Clicks,
		ClicksNew:      r.New.Clicks,
		CROld:          r.Old.CR(),
		CRNew:          r.New.CR(),
		MarginOld:      r.Old.Margin(),
		MarginNew:      r.New.Margin(),
		RevenuePct:     variance.PctChange(r.New.Revenue, r.Old.Revenue),
		ClicksPct:      variance.PctChange(r.New.Clicks, r.Old.Clicks),
		CRPct:          variance.PctChange(r.New.CR(), r.Old.CR()),
		RevenueMove:    r.New.Revenue - r.Old.Revenue,
		RevenueContrib: r.Revenue,
		MarginContrib:  r.Margin,
		Driver:         r.Driver,
	}

	switch {
	case dir == variance.Decline && r.New.Profit == 0 && r.Old.Profit != 0:
		d.Kind = KindStopped
	case dir == variance.Rise && r.Old.Profit == 0 && r.New.Profit != 0:
		d.Kind = KindNewRevenue
	default:
		d.Kind = kindOf(r.Driver)
	}
	return d
}

func kindOf(driver variance.Driver) Kind {
	switch driver {
	case variance.DriverRevenue:
		return KindRevenue
	case variance.DriverMargin:
		return KindMargin
	case variance.DriverCombined:
		return KindCombined
	default:
		return KindFlat
	}
}

// Stable is the single record emitted when the portfolio did not move enough.
func Stable(pctChange, stablePct float64, newLabel, oldLabel string) Diagnosis {
	return Diagnosis{
		Kind:      KindStable,
		NewLabel:  newLabel,
		OldLabel:  oldLabel,
		PctChange: pctChange,
		StablePct: stablePct,
		Driver:    variance.DriverNone,
	}
}

// Quiet is the placeholder for a flagged entity with no moving children.
func Quiet() Diagnosis {
	return Diagnosis{Kind: KindQuiet, Driver: variance.DriverNone}
}
