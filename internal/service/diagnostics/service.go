package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ignite/offer-diagnostics/internal/calendar"
	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/narrative"
	"github.com/ignite/offer-diagnostics/internal/pkg/distlock"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/report"
	"github.com/ignite/offer-diagnostics/internal/repository"
	"github.com/ignite/offer-diagnostics/internal/storage"
	"github.com/ignite/offer-diagnostics/internal/workbook"
)

// Deps wires the service. Only Store is required.
type Deps struct {
	Store      Store
	Source     MetricSource
	SourceName string
	History    History
	Notifier   Notifier
	Recorder   Recorder
	Locks      LockFactory
	Formatter  narrative.Formatter
	Clock      func() time.Time
}

// Service runs and serves reports. Safe for concurrent use when its
// collaborators are.
type Service struct {
	deps        Deps
	thresholds  config.Thresholds
	calendar    calendar.WorkdayChecker
	concurrency int
}

// NewService builds the service for cfg.
func NewService(cfg *config.Config, deps Deps) (*Service, error) {
	cal, err := calendar.FromStrings(cfg.Calendar.Region, cfg.Calendar.Holidays, cfg.Calendar.Workdays)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.SourceName == "" {
		deps.SourceName = "workbook"
	}
	if deps.Locks == nil {
		deps.Locks = func(key string) distlock.DistLock { return distlock.NewLock(nil, nil, key, 0) }
	}
	return &Service{deps: deps, thresholds: cfg.Thresholds, calendar: cal, concurrency: cfg.Report.Concurrency}, nil
}

// Request is one report run.
type Request struct {
	// Workbook holds the input sheets. With a metric source configured only
	// its reference sheets are read.
	Workbook io.Reader
	// Input is an already normalised input; it takes precedence over Workbook.
	Input *domain.Input
	// Today defaults to the service clock.
	Today time.Time
}

// Generate runs one report and persists it.
func (s *Service) Generate(ctx context.Context, req Request) (rep *report.Report, err error) {
	defer func() {
		if s.deps.Recorder != nil {
			s.deps.Recorder.RecordRun(s.deps.SourceName, rep, err)
		}
	}()

	today := req.Today
	if today.IsZero() {
		today = s.deps.Clock()
	}
	today = domain.Day(today)

	in, err := s.load(ctx, req, today)
	if err != nil {
		return nil, err
	}

	err = distlock.Run(ctx, s.deps.Locks(distlock.ReportKey(today)), func(ctx context.Context) error {
		var runErr error
		rep, runErr = report.Run(ctx, in, report.Options{
			Today:       today,
			Concurrency: s.concurrency,
			Thresholds:  &s.thresholds,
			Calendar:    s.calendar,
			Formatter:   s.deps.Formatter,
			Observer:    s.observer(),
			Clock:       s.deps.Clock,
		})
		if runErr != nil {
			return runErr
		}
		if runErr = s.deps.Store.SaveReport(ctx, rep); runErr != nil {
			return fmt.Errorf("saving report: %w", runErr)
		}
		return nil
	})
	if errors.Is(err, distlock.ErrHeld) {
		return nil, ErrRunning
	}
	if err != nil {
		return nil, err
	}

	// history and mail are outer surfaces; the report is already stored
	if s.deps.History != nil {
		if herr := s.deps.History.SaveRun(ctx, rep); herr != nil {
			logger.Warn("diagnostics: run history not saved", "report", rep.ID, "error", herr)
		}
	}
	if s.deps.Notifier != nil {
		if nerr := s.deps.Notifier.SendSummary(ctx, rep); nerr != nil {
			logger.Warn("diagnostics: summary not sent", "report", rep.ID, "error", nerr)
		}
	}
	logger.Info("diagnostics: report generated", "report", rep.ID, "source", s.deps.SourceName,
		"today", today.Format(domain.DateLayout), "actions", len(rep.Actions))
	return rep, nil
}

func (s *Service) observer() report.Observer {
	if s.deps.Recorder == nil {
		return nil
	}
	return s.deps.Recorder
}

// Window is the flow window pulled from a metric source for today.
func (s *Service) Window(today time.Time) (from, to time.Time) {
	to = today.AddDate(0, 0, -1)
	return to.AddDate(0, 0, -s.thresholds.TrailingDays), to
}

func (s *Service) load(ctx context.Context, req Request, today time.Time) (*domain.Input, error) {
	if req.Input != nil {
		in := *req.Input
		if len(in.Metrics) == 0 && s.deps.Source != nil {
			return &in, s.fill(ctx, &in, today)
		}
		return &in, nil
	}

	wb := req.Workbook
	opts := datanorm.Options{DefaultCap: s.thresholds.DefaultCap, ReferenceOnly: s.deps.Source != nil}
	if wb == nil {
		if s.deps.Source == nil {
			return nil, ErrNoWorkbook
		}
		in := &domain.Input{}
		return in, s.fill(ctx, in, today)
	}

	in, err := workbook.Read(wb, opts)
	var verr *datanorm.ValidationError
	if errors.As(err, &verr) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWorkbook, err)
	}
	if s.deps.Source != nil {
		if err := s.fill(ctx, in, today); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (s *Service) fill(ctx context.Context, in *domain.Input, today time.Time) error {
	from, to := s.Window(today)
	records, err := s.deps.Source.LoadMetrics(ctx, from, to)
	if err != nil {
		return fmt.Errorf("loading metrics from %s: %w", s.deps.SourceName, err)
	}
	in.Metrics = records
	return nil
}

// Get returns a stored report.
func (s *Service) Get(ctx context.Context, id string) (*report.Report, error) {
	rep, err := s.deps.Store.GetReport(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrNotFound
	}
	return rep, nil
}

// Runs lists recent runs from history. Without a history it returns nil.
func (s *Service) Runs(ctx context.Context, limit int) ([]repository.RunSummary, error) {
	lister, ok := s.deps.History.(RunLister)
	if !ok {
		return nil, nil
	}
	return lister.ListRuns(ctx, limit)
}
