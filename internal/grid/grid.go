// Package grid completes a sparse metric table into a dense entity by date
// grid. Every entity seen in the input gets exactly one cell per requested
// date, zero-filled when it had no activity that day.
package grid

import (
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// KeyFunc maps a record onto the entity it belongs to at the chosen granularity.
type KeyFunc func(r domain.MetricRecord) string

// Common granularities.
var (
	ByOffer     KeyFunc = func(r domain.MetricRecord) string { return r.OfferID }
	ByAffiliate KeyFunc = func(r domain.MetricRecord) string { return r.Affiliate }
	ByAll       KeyFunc = func(domain.MetricRecord) string { return "" }
)

// Attrs are the categorical fields of a cell, first non-empty value wins.
type Attrs struct {
	OfferID    string        `json:"offer_id"`
	AdvOfferID string        `json:"adv_offer_id"`
	Advertiser string        `json:"advertiser"`
	AppID      string        `json:"app_id"`
	Geo        string        `json:"geo"`
	Affiliate  string        `json:"affiliate"`
	Status     domain.Status `json:"status"`
	Cap        float64       `json:"cap"`
	UnitPrice  float64       `json:"unit_price"`
}

// Cell is the aggregated metrics of one entity on one date.
type Cell struct {
	Entity      string    `json:"entity"`
	Date        time.Time `json:"date"`
	Clicks      float64   `json:"clicks"`
	Conversions float64   `json:"conversions"`
	Revenue     float64   `json:"revenue"`
	Cost        float64   `json:"cost"`
	Profit      float64   `json:"profit"`
	OnlineHours float64   `json:"online_hours"`
	Attrs       Attrs     `json:"attrs"`
	// Present is false for zero-filled cells with no source rows.
	Present bool `json:"present"`
}

type cellKey struct {
	entity string
	date   time.Time
}

// Grid is an immutable entity by date table.
type Grid struct {
	entities []string
	dates    []time.Time
	cells    map[cellKey]*Cell
}

// Build aggregates records into a grid over the given dates. The entity set
// is every distinct key among records, including entities with no rows on
// any of the dates. Entities keep first-seen order; dates keep the given order.
func Build(records []domain.MetricRecord, key KeyFunc, dates []time.Time) *Grid {
	g := &Grid{
		dates: make([]time.Time, 0, len(dates)),
		cells: make(map[cellKey]*Cell),
	}
	wanted := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		day := domain.Day(d)
		if wanted[day] {
			continue
		}
		wanted[day] = true
		g.dates = append(g.dates, day)
	}

	seen := make(map[string]bool)
	for _, r := range records {
		e := key(r)
		if !seen[e] {
			seen[e] = true
			g.entities = append(g.entities, e)
			for _, d := range g.dates {
				g.cells[cellKey{e, d}] = &Cell{Entity: e, Date: d}
			}
		}
		day := domain.Day(r.Date)
		if !wanted[day] {
			continue
		}
		c := g.cells[cellKey{e, day}]
		c.add(r)
	}
	return g
}

func (c *Cell) add(r domain.MetricRecord) {
	c.Present = true
	c.Clicks += r.Clicks
	c.Conversions += r.Conversions
	c.Revenue += r.Revenue
	c.Cost += r.Cost
	c.Profit += r.Profit
	if r.OnlineHours > c.OnlineHours {
		c.OnlineHours = r.OnlineHours
	}
	a := &c.Attrs
	firstString(&a.OfferID, r.OfferID)
	firstString(&a.AdvOfferID, r.AdvOfferID)
	firstString(&a.Advertiser, r.Advertiser)
	firstString(&a.AppID, r.AppID)
	firstString(&a.Geo, r.Geo)
	firstString(&a.Affiliate, r.Affiliate)
	if (a.Status == "" || a.Status == domain.StatusUnknown) && r.Status != "" && r.Status != domain.StatusUnknown {
		a.Status = r.Status
	}
	if a.Cap == 0 && r.Cap > 0 {
		a.Cap = r.Cap
	}
	if a.UnitPrice == 0 && r.UnitPrice > 0 {
		a.UnitPrice = r.UnitPrice
	}
}

func firstString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// Entities returns the entity keys in first-seen order.
func (g *Grid) Entities() []string {
	out := make([]string, len(g.entities))
	copy(out, g.entities)
	return out
}

// Dates returns the grid dates.
func (g *Grid) Dates() []time.Time {
	out := make([]time.Time, len(g.dates))
	copy(out, g.dates)
	return out
}

// Cell returns the cell for entity on date. Unknown pairs return a zero cell.
func (g *Grid) Cell(entity string, date time.Time) Cell {
	if c, ok := g.cells[cellKey{entity, domain.Day(date)}]; ok {
		return *c
	}
	return Cell{Entity: entity, Date: domain.Day(date)}
}

// Rows returns every cell, entity-major. len(Rows()) == len(Entities())*len(Dates()).
func (g *Grid) Rows() []Cell {
	out := make([]Cell, 0, len(g.entities)*len(g.dates))
	for _, e := range g.entities {
		for _, d := range g.dates {
			out = append(out, *g.cells[cellKey{e, d}])
		}
	}
	return out
}

// Len is the number of cells.
func (g *Grid) Len() int {
	return len(g.entities) * len(g.dates)
}
