package variance

// Driver names the dominant cause of a profit move.
type Driver string

const (
	DriverNone     Driver = "none"
	DriverRevenue  Driver = "revenue"
	DriverMargin   Driver = "margin"
	DriverCombined Driver = "combined"
)

// Contribution splits a profit delta. Revenue+Margin equals the delta up to
// floating point.
type Contribution struct {
	Revenue float64 `json:"revenue_contrib"`
	Margin  float64 `json:"margin_contrib"`
}

// Total is the reconstructed profit delta.
func (c Contribution) Total() float64 { return c.Revenue + c.Margin }

// Decompose splits profitNew-profitOld into a revenue-driven part at the old
// margin and a margin-driven part at the new revenue. An undefined old margin
// puts the whole delta on the margin side; an undefined new margin puts it on
// the revenue side.
func Decompose(revenueOld, profitOld, revenueNew, profitNew float64) Contribution {
	delta := profitNew - profitOld
	switch {
	case revenueOld == 0:
		return Contribution{Revenue: 0, Margin: delta}
	case revenueNew == 0:
		return Contribution{Revenue: delta, Margin: 0}
	}
	mo := profitOld / revenueOld
	mn := profitNew / revenueNew
	return Contribution{
		Revenue: (revenueNew - revenueOld) * mo,
		Margin:  revenueNew * (mn - mo),
	}
}

// Classifier holds the dominance rule constants.
type Classifier struct {
	Dominance float64
	Epsilon   float64
}

// DefaultClassifier uses the 80% dominance rule.
var DefaultClassifier = Classifier{Dominance: 0.8, Epsilon: 1e-6}

// Classify names the dominant driver of c.
func (cl Classifier) Classify(c Contribution) Driver {
	total := abs(c.Revenue) + abs(c.Margin)
	if total < cl.Epsilon {
		return DriverNone
	}
	if abs(c.Revenue)/total > cl.Dominance {
		return DriverRevenue
	}
	if abs(c.Margin)/total > cl.Dominance {
		return DriverMargin
	}
	return DriverCombined
}
