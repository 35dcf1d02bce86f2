package variance

import (
	"sort"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/grid"
)

// Snapshot is one side of a comparison.
type Snapshot struct {
	Date        time.Time `json:"date"`
	Clicks      float64   `json:"clicks"`
	Conversions float64   `json:"conversions"`
	Revenue     float64   `json:"revenue"`
	Cost        float64   `json:"cost"`
	Profit      float64   `json:"profit"`
	OnlineHours float64   `json:"online_hours"`
}

// SnapshotOf copies the metrics of a grid cell.
func SnapshotOf(c grid.Cell) Snapshot {
	return Snapshot{
		Date:        c.Date,
		Clicks:      c.Clicks,
		Conversions: c.Conversions,
		Revenue:     c.Revenue,
		Cost:        c.Cost,
		Profit:      c.Profit,
		OnlineHours: c.OnlineHours,
	}
}

func (s Snapshot) Margin() float64 { return Margin(s.Profit, s.Revenue) }
func (s Snapshot) CR() float64     { return SafeDiv(s.Conversions, s.Clicks) }

// Pair compares one entity's profit across two snapshots.
type Pair struct {
	Entity string     `json:"entity"`
	Attrs  grid.Attrs `json:"attrs"`
	New    Snapshot   `json:"new"`
	Old    Snapshot   `json:"old"`
	// Delta is new minus old profit.
	Delta float64 `json:"delta"`
	// PctChange is the profit change in percent, 0 when old profit is zero.
	PctChange float64 `json:"pct_change"`
}

// LatestDates picks the two most recent distinct days. ok is false when fewer
// than two exist.
func LatestDates(dates []time.Time) (dayNew, dayOld time.Time, ok bool) {
	seen := make(map[time.Time]bool, len(dates))
	uniq := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := domain.Day(d)
		if !seen[day] {
			seen[day] = true
			uniq = append(uniq, day)
		}
	}
	if len(uniq) < 2 {
		return time.Time{}, time.Time{}, false
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].After(uniq[j]) })
	return uniq[0], uniq[1], true
}

// Compare builds one Pair per grid entity between dayNew and dayOld. Entities
// come back in grid order.
func Compare(g *grid.Grid, dayNew, dayOld time.Time) []Pair {
	entities := g.Entities()
	out := make([]Pair, 0, len(entities))
	for _, e := range entities {
		n := g.Cell(e, dayNew)
		o := g.Cell(e, dayOld)
		attrs := n.Attrs
		if !n.Present {
			attrs = o.Attrs
		}
		out = append(out, Pair{
			Entity:    e,
			Attrs:     attrs,
			New:       SnapshotOf(n),
			Old:       SnapshotOf(o),
			Delta:     n.Profit - o.Profit,
			PctChange: PctChange(n.Profit, o.Profit),
		})
	}
	return out
}

// Direction restricts which side of a threshold counts.
type Direction int

const (
	Either Direction = iota
	Decline
	Rise
)

func (d Direction) String() string {
	switch d {
	case Decline:
		return "decline"
	case Rise:
		return "rise"
	default:
		return "either"
	}
}

// Threshold is an absolute profit-delta trigger.
type Threshold struct {
	Delta     float64
	Direction Direction
}

// Crossed reports whether delta triggers the threshold.
func (t Threshold) Crossed(delta float64) bool {
	switch t.Direction {
	case Decline:
		return delta <= -t.Delta
	case Rise:
		return delta >= t.Delta
	default:
		return abs(delta) >= t.Delta
	}
}

// DirectionOf returns Decline for negative deltas and Rise otherwise.
func DirectionOf(delta float64) Direction {
	if delta < 0 {
		return Decline
	}
	return Rise
}

// IsStable reports whether profit moved less than stablePct percent.
func IsStable(profitOld, profitNew, stablePct float64) bool {
	return abs(PctChange(profitNew, profitOld)) < stablePct
}
