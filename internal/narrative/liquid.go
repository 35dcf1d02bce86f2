package narrative

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// DefaultTemplates are the liquid templates used when none are configured.
var DefaultTemplates = map[Kind]string{
	KindStable:     `profit moved {{ pct_change | abs | points }} between {{ old_label }} and {{ new_label }}; profit is stable, no further analysis needed`,
	KindQuiet:      `no downstream affiliate had a notable profit change`,
	KindStopped:    `{{ subject }} stopped generating revenue, losing {{ revenue_move | abs | money }} USD`,
	KindNewRevenue: `{{ subject }} started generating revenue, adding {{ revenue_move | money }} USD`,
	KindRevenue:    `{{ subject }} {{ delta | money }} USD, revenue-driven {{ revenue_contrib | money }} USD, CR {{ cr_old | pct }} -> {{ cr_new | pct }}`,
	KindMargin:     `{{ subject }} {{ delta | money }} USD, margin-driven {{ margin_contrib | money }} USD, margin {{ margin_old | pct }} -> {{ margin_new | pct }}`,
	KindCombined:   `{{ subject }} {{ delta | money }} USD, revenue {{ revenue_contrib | money }} USD and margin {{ margin_contrib | money }} USD`,
	KindFlat:       `{{ subject }} {{ delta | money }} USD`,
}

// LiquidFormatter renders diagnoses through per-kind liquid templates.
type LiquidFormatter struct {
	engine    *liquid.Engine
	templates map[Kind]*liquid.Template
	mu        sync.RWMutex
}

// NewLiquidFormatter parses templates, falling back to DefaultTemplates for
// kinds that are not overridden.
func NewLiquidFormatter(overrides map[Kind]string) (*LiquidFormatter, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("money", Money)
	engine.RegisterFilter("pct", Percent)
	engine.RegisterFilter("points", Points)

	f := &LiquidFormatter{engine: engine, templates: make(map[Kind]*liquid.Template)}
	for kind, src := range DefaultTemplates {
		if o, ok := overrides[kind]; ok {
			src = o
		}
		if err := f.set(kind, src); err != nil {
			return nil, err
		}
	}
	for kind, src := range overrides {
		if _, ok := DefaultTemplates[kind]; !ok {
			if err := f.set(kind, src); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (f *LiquidFormatter) set(kind Kind, src string) error {
	tpl, err := f.engine.ParseString(src)
	if err != nil {
		return fmt.Errorf("parsing %s template: %w", kind, err)
	}
	f.mu.Lock()
	f.templates[kind] = tpl
	f.mu.Unlock()
	return nil
}

// Render implements Formatter.
func (f *LiquidFormatter) Render(d Diagnosis) (string, error) {
	f.mu.RLock()
	tpl, ok := f.templates[d.Kind]
	f.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no template for diagnosis kind %q", d.Kind)
	}
	out, err := tpl.RenderString(bindings(d))
	if err != nil {
		return "", err
	}
	return out, nil
}

func bindings(d Diagnosis) liquid.Bindings {
	return liquid.Bindings{
		"kind":            string(d.Kind),
		"subject":         d.Subject,
		"direction":       d.Direction.String(),
		"new_label":       d.NewLabel,
		"old_label":       d.OldLabel,
		"delta":           d.Delta,
		"profit_old":      d.ProfitOld,
		"profit_new":      d.ProfitNew,
		"revenue_old":     d.RevenueOld,
		"revenue_new":     d.RevenueNew,
		"clicks_old":      d.ClicksOld,
		"clicks_new":      d.ClicksNew,
		"cr_old":          d.CROld,
		"cr_new":          d.CRNew,
		"margin_old":      d.MarginOld,
		"margin_new":      d.MarginNew,
		"revenue_pct":     d.RevenuePct,
		"clicks_pct":      d.ClicksPct,
		"cr_pct":          d.CRPct,
		"revenue_move":    d.RevenueMove,
		"revenue_contrib": d.RevenueContrib,
		"margin_contrib":  d.MarginContrib,
		"driver":          string(d.Driver),
		"pct_change":      d.PctChange,
		"stable_pct":      d.StablePct,
	}
}
