// Package metrics exposes Prometheus collectors for report runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// Registry holds the offer diagnostics collectors on a private registry.
type Registry struct {
	reg *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	StageRows     *prometheus.GaugeVec
	Runs          *prometheus.CounterVec
	ActionItems   *prometheus.GaugeVec
	LastRun       prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "offerdiag_stage_duration_seconds",
				Help:    "Duration of each report stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		StageRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "offerdiag_stage_rows",
				Help: "Rows produced by each stage in the latest run",
			},
			[]string{"stage"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offerdiag_runs_total",
				Help: "Report runs by metric source and result",
			},
			[]string{"source", "result"},
		),
		ActionItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "offerdiag_action_items",
				Help: "Action items of the latest run by priority tier",
			},
			[]string{"tier"},
		),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offerdiag_last_run_timestamp_seconds",
			Help: "Unix time the latest successful run finished",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offerdiag_http_requests_total",
				Help: "API requests by route and status class",
			},
			[]string{"route", "code"},
		),
	}
	r.reg.MustRegister(
		r.StageDuration, r.StageRows, r.Runs, r.ActionItems, r.LastRun, r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStage implements report.Observer.
func (r *Registry) ObserveStage(stage string, took time.Duration, rows int) {
	r.StageDuration.WithLabelValues(stage).Observe(took.Seconds())
	r.StageRows.WithLabelValues(stage).Set(float64(rows))
}

// RecordRun counts a finished run and, on success, its action tiers.
func (r *Registry) RecordRun(source string, rep *report.Report, err error) {
	if err != nil {
		r.Runs.WithLabelValues(source, "error").Inc()
		return
	}
	r.Runs.WithLabelValues(source, "ok").Inc()
	r.LastRun.Set(float64(rep.GeneratedAt.Unix()))
	counts := map[string]int{"tier1": 0, "tier2": 0, "none": 0}
	for _, a := range rep.Actions {
		switch a.Tier {
		case domain.Tier1, domain.Tier2:
			counts[string(a.Tier)]++
		default:
			counts["none"]++
		}
	}
	for tier, n := range counts {
		r.ActionItems.WithLabelValues(tier).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

var _ report.Observer = (*Registry)(nil)
