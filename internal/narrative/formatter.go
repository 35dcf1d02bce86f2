package narrative

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignite/offer-diagnostics/internal/variance"
)

// Formatter renders a Diagnosis to text.
type Formatter interface {
	Render(d Diagnosis) (string, error)
}

// RenderAll renders ds and joins them with sep.
func RenderAll(f Formatter, ds []Diagnosis, sep string) (string, error) {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		s, err := f.Render(d)
		if err != nil {
			return "", fmt.Errorf("rendering %s diagnosis for %q: %w", d.Kind, d.Subject, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep), nil
}

// TextFormatter is the default plain English formatter.
type TextFormatter struct{}

// Money formats a currency amount with 2 decimals.
func Money(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

// Percent formats a ratio as a percentage with 1 decimal.
func Percent(ratio float64) string { return Points(ratio * 100) }

// Points formats a value already in percent with 1 decimal.
func Points(pct float64) string { return decimal.NewFromFloat(pct).StringFixed(1) + "%" }

func verb(dir variance.Direction) string {
	if dir == variance.Decline {
		return "decline"
	}
	return "increase"
}

func (TextFormatter) Render(d Diagnosis) (string, error) {
	switch d.Kind {
	case KindStable:
		return fmt.Sprintf("profit moved %s (under %s) between %s and %s; profit is stable, no further analysis needed",
			Points(math.Abs(d.PctChange)), Points(d.StablePct), d.OldLabel, d.NewLabel), nil
	case KindQuiet:
		return "no downstream affiliate had a notable profit change", nil
	case KindStopped:
		return fmt.Sprintf("%s stopped generating revenue, losing %s USD; total revenue went from %s USD (%s) to %s USD (%s)",
			d.Subject, Money(d.RevenueOld-d.RevenueNew), Money(d.RevenueOld), d.OldLabel, Money(d.RevenueNew), d.NewLabel), nil
	case KindNewRevenue:
		return fmt.Sprintf("%s started generating revenue, adding %s USD; total revenue went from %s USD (%s) to %s USD (%s)",
			d.Subject, Money(d.RevenueNew-d.RevenueOld), Money(d.RevenueOld), d.OldLabel, Money(d.RevenueNew), d.NewLabel), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s total profit impact %s USD; total profit went from %s USD (%s) to %s USD (%s)",
		d.Subject, Money(d.Delta), Money(d.ProfitOld), d.OldLabel, Money(d.ProfitNew), d.NewLabel)

	switch d.Kind {
	case KindRevenue:
		fmt.Fprintf(&b, ", mainly driven by the revenue %s, impacting profit by %s USD; %s",
			verb(d.Direction), Money(d.RevenueContrib), trafficLine(d))
	case KindMargin:
		fmt.Fprintf(&b, ", mainly driven by the margin %s, impacting profit by %s USD; margin went from %s to %s, check whether price or budget settings changed",
			verb(d.Direction), Money(d.MarginContrib), Percent(d.MarginOld), Percent(d.MarginNew))
	case KindCombined:
		fmt.Fprintf(&b, ", revenue and margin impacted profit by %s USD and %s USD respectively; %s; margin went from %s to %s, check whether price or budget settings changed",
			Money(d.RevenueContrib), Money(d.MarginContrib), trafficLine(d), Percent(d.MarginOld), Percent(d.MarginNew))
	}
	return b.String(), nil
}

func trafficLine(d Diagnosis) string {
	return fmt.Sprintf("total revenue went from %s USD to %s USD (%s), total clicks from %s to %s (%s), CR from %s to %s (%s)",
		Money(d.RevenueOld), Money(d.RevenueNew), Points(d.RevenuePct),
		Money(d.ClicksOld), Money(d.ClicksNew), Points(d.ClicksPct),
		Percent(d.CROld), Percent(d.CRNew), Points(d.CRPct))
}
