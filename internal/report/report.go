// Package report runs every analysis over one normalized input and
// assembles the rounded output tables.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/offer-diagnostics/internal/actions"
	"github.com/ignite/offer-diagnostics/internal/analysis"
	"github.com/ignite/offer-diagnostics/internal/calendar"
	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/rollup"
	"github.com/ignite/offer-diagnostics/internal/variance"
)

// ErrNoMetrics is returned when the input carries no flow rows.
var ErrNoMetrics = errors.New("report: input has no metric rows")

// Observer receives per-stage timings.
type Observer interface {
	ObserveStage(stage string, took time.Duration, rows int)
}

// Options tune one run. Zero values fall back to production defaults.
type Options struct {
	// Today is the run date; it anchors the peak window and the priority tiers.
	Today       time.Time
	Concurrency int
	Thresholds  *config.Thresholds
	Calendar    calendar.WorkdayChecker
	Formatter   narrative.Formatter
	Observer    Observer
	Clock       func() time.Time
}

// Report is the full output of one run.
type Report struct {
	ID          string    `json:"id"`
	DayNew      time.Time `json:"day_new"`
	DayOld      time.Time `json:"day_old"`
	Today       time.Time `json:"today"`
	GeneratedAt time.Time `json:"generated_at"`

	Totals       []rollup.TierTotal   `json:"totals"`
	Fluctuations []analysis.OfferMove `json:"fluctuations"`
	Advertisers  []rollup.GroupRollup `json:"advertisers"`
	Affiliates   []rollup.GroupRollup `json:"affiliates"`
	PeakDeclines []analysis.OfferMove `json:"peak_declines"`
	Influence    *analysis.Influence  `json:"influence,omitempty"`
	Rejects      []rollup.RejectRow   `json:"rejects"`
	Events       []rollup.EventRow    `json:"events"`
	Actions      []domain.ActionItem  `json:"actions"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// TierActions returns the actions carrying tier.
func (r *Report) TierActions(tier domain.Tier) []domain.ActionItem {
	var out []domain.ActionItem
	for _, a := range r.Actions {
		if a.Tier == tier {
			out = append(out, a)
		}
	}
	return out
}

// Run computes every table. Variance tables stay empty when the input has
// fewer than two distinct dates.
func Run(ctx context.Context, in *domain.Input, opts Options) (*Report, error) {
	if in == nil || len(in.Metrics) == 0 {
		return nil, ErrNoMetrics
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	th := config.DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	today := opts.Today
	if today.IsZero() {
		today = clock()
	}
	today = domain.Day(today)
	cal := opts.Calendar
	if cal == nil {
		cal = calendar.New("", nil, nil)
	}

	rep := &Report{ID: uuid.New().String(), Today: today}
	dayNew, dayOld, twoDays := variance.LatestDates(in.Dates())
	if twoDays {
		rep.DayNew, rep.DayOld = dayNew, dayOld
	} else {
		rep.Warnings = append(rep.Warnings, "fewer than two distinct dates; variance tables are empty")
		if dates := in.Dates(); len(dates) > 0 {
			rep.DayNew = dates[0]
		}
	}

	offers := datanorm.BuildOfferInfo(in.Metrics, th.DefaultCap)
	hier := rollup.NewHierarchy(in.Advertisers)
	events := rollup.ClassifyEvents(in.Events, in.RejectRules, hier)

	env := analysis.NewEnv(in.Metrics, offers, dayNew, dayOld, today, th)
	env.Concurrency = opts.Concurrency
	if opts.Formatter != nil {
		env.Formatter = opts.Formatter
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	stage := func(name string, fn func(ctx context.Context) (int, error)) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if opts.Observer != nil {
				opts.Observer.ObserveStage(name, time.Since(start), n)
			}
			logger.Debug("report: stage done", "stage", name, "rows", n, "took", time.Since(start).String())
			return nil
		})
	}

	if twoDays {
		stage("totals", func(context.Context) (int, error) {
			rep.Totals = rollup.TierTotals(in.Metrics, hier, in.Targets, dayNew, dayOld)
			return len(rep.Totals), nil
		})
		stage("advertisers", func(context.Context) (int, error) {
			rep.Advertisers = rollup.AdvertiserRollup(in.Metrics, events, hier, dayNew, dayOld)
			return len(rep.Advertisers), nil
		})
		stage("affiliates", func(context.Context) (int, error) {
			rep.Affiliates = rollup.AffiliateRollup(in.Metrics, events, dayNew, dayOld)
			return len(rep.Affiliates), nil
		})
		stage("fluctuation", func(ctx context.Context) (int, error) {
			moves, err := analysis.Fluctuation(ctx, env)
			rep.Fluctuations = moves
			return len(moves), err
		})
		stage("peak_decline", func(ctx context.Context) (int, error) {
			moves, err := analysis.PeakDecline(ctx, env)
			rep.PeakDeclines = moves
			return len(moves), err
		})
		stage("influence", func(ctx context.Context) (int, error) {
			inf, err := analysis.ProfitInfluence(ctx, env)
			rep.Influence = inf
			if inf == nil {
				return 0, err
			}
			return len(inf.CoreOffers), err
		})
	}
	stage("events", func(context.Context) (int, error) {
		rep.Rejects, rep.Events = rollup.EventAnalysis(in.Metrics, events, offers)
		return len(rep.Rejects) + len(rep.Events), nil
	})
	stage("actions", func(context.Context) (int, error) {
		p := actions.NewPrioritizer(th, cal)
		rep.Actions = p.Prioritize(actions.Input{
			Records:      in.Metrics,
			Offers:       offers,
			Hierarchy:    hier,
			Blacklist:    in.Blacklist,
			TrafficTypes: in.TrafficTypes,
			Today:        today,
		})
		return len(rep.Actions), nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	rep.round()
	rep.GeneratedAt = clock().UTC()
	logger.Info("report: run complete",
		"id", rep.ID,
		"day_new", rep.DayNew.Format(domain.DateLayout),
		"fluctuations", len(rep.Fluctuations),
		"peak_declines", len(rep.PeakDeclines),
		"actions", len(rep.Actions))
	return rep, nil
}
