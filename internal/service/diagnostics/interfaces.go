package diagnostics

import (
	"context"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/distlock"
	"github.com/ignite/offer-diagnostics/internal/report"
	"github.com/ignite/offer-diagnostics/internal/repository"
)

// MetricSource loads the daily flow between two dates, inclusive.
type MetricSource interface {
	LoadMetrics(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error)
}

// SourceFunc adapts a function such as everflow.Client.FetchMetrics.
type SourceFunc func(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error)

func (f SourceFunc) LoadMetrics(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error) {
	return f(ctx, from, to)
}

// Store keeps report artifacts.
type Store interface {
	SaveReport(ctx context.Context, rep *report.Report) error
	GetReport(ctx context.Context, id string) (*report.Report, error)
}

// History records runs for querying outside the artifact store.
type History interface {
	SaveRun(ctx context.Context, rep *report.Report) error
}

// RunLister is implemented by histories that can be queried.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]repository.RunSummary, error)
}

// Notifier announces a finished run.
type Notifier interface {
	SendSummary(ctx context.Context, rep *report.Report) error
}

// Recorder counts finished runs.
type Recorder interface {
	report.Observer
	RecordRun(source string, rep *report.Report, err error)
}

// LockFactory makes the lock for one key.
type LockFactory func(key string) distlock.DistLock
