package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kilianp07/bessarb/config"
	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
	coremon "github.com/kilianp07/bessarb/core/monitoring"
	"github.com/kilianp07/bessarb/core/scheduler"
	"github.com/kilianp07/bessarb/core/solver"
	"github.com/kilianp07/bessarb/infra/logger"
	"github.com/kilianp07/bessarb/infra/metrics"
	"github.com/kilianp07/bessarb/infra/monitoring"
	"github.com/kilianp07/bessarb/infra/pricedata"
	"github.com/kilianp07/bessarb/internal/eventbus"
	"github.com/kilianp07/bessarb/pkg/export"
)

// Service wires the configured price data, solver backend and result sinks
// around the rolling scheduler and writes the result files.
type Service struct {
	cfg       *config.Config
	battery   model.BatteryParameters
	scheduler *scheduler.Scheduler
	sink      coremetrics.Sink
	monitor   coremon.Monitor
	bus       *eventbus.Bus[scheduler.DayEvent]
	log       logger.Logger
}

// Option customises a Service.
type Option func(*options)

type options struct {
	feed    scheduler.PriceFeed
	solver  solver.Solver
	sink    coremetrics.Sink
	monitor coremon.Monitor
}

// WithFeed replaces the CSV price files named in the configuration.
func WithFeed(f scheduler.PriceFeed) Option { return func(o *options) { o.feed = f } }

// WithSolver replaces the configured solver backend.
func WithSolver(s solver.Solver) Option { return func(o *options) { o.solver = s } }

// WithSink replaces the configured result sinks.
func WithSink(s coremetrics.Sink) Option { return func(o *options) { o.sink = s } }

// WithMonitor replaces the configured error tracker.
func WithMonitor(m coremon.Monitor) Option { return func(o *options) { o.monitor = m } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logg := logger.New("service")

	battery, err := cfg.BatteryParameters()
	if err != nil {
		return nil, err
	}
	if o.feed == nil {
		feed, err := pricedata.LoadFeed(cfg.Data)
		if err != nil {
			return nil, fmt.Errorf("price data: %w", err)
		}
		o.feed = feed
	}
	if o.solver == nil {
		slv, err := solver.New(cfg.Solver.Module())
		if err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
		o.solver = slv
	}
	if o.monitor == nil {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		o.monitor = mon
	}
	if o.sink == nil {
		sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sinks: %w", err)
		}
		o.sink = sink
	}

	bus := eventbus.New[scheduler.DayEvent](cfg.Scheduler.Days + 1)
	sched, err := scheduler.New(cfg.Scheduler, battery, o.feed, o.solver,
		scheduler.WithSink(o.sink),
		scheduler.WithEventBus(bus),
		scheduler.WithLogger(logger.New("scheduler")),
	)
	if err != nil {
		_ = coremetrics.Close(o.sink)
		return nil, err
	}
	return &Service{cfg: cfg, battery: battery, scheduler: sched, sink: o.sink, monitor: o.monitor, bus: bus, log: logg}, nil
}

// Battery returns the resolved battery parameters.
func (s *Service) Battery() model.BatteryParameters { return s.battery }

// Run solves the configured horizon and writes the result files. Files are
// written for the days completed even when the run fails.
func (s *Service) Run(ctx context.Context) (*scheduler.Result, error) {
	start, err := s.cfg.Scheduler.StartDate()
	if err != nil {
		return nil, err
	}
	done := metrics.StartEventCollector(ctx, s.bus, func(e scheduler.DayEvent) {
		s.log.Infof("day %d/%d %s %s profit=%.2f soc=%.3f",
			e.Index+1, e.Total, e.Day.Date.Format(time.DateOnly), e.Day.Status, e.Day.Profit, e.Day.FinalSOC)
	})

	s.log.Infof("rolling run from %s over %d days with %s valuation",
		start.Format(time.DateOnly), s.cfg.Scheduler.Days, s.cfg.Scheduler.TerminalValuation)
	res, runErr := s.scheduler.Run(ctx, start, s.cfg.Scheduler.Days)
	s.bus.Close()
	<-done

	if runErr != nil {
		s.monitor.CaptureException(runErr, failureTags(start, res))
	}
	if err := s.writeOutputs(start, res, runErr); err != nil {
		return res, errors.Join(runErr, err)
	}
	if runErr == nil {
		s.log.Infof("run %s finished: total profit %s, final soc %.3f",
			res.RunID, export.TotalProfit(res.Days).StringFixed(2), res.FinalSOC)
	}
	return res, runErr
}

// SolveDate solves a single day from initialSOC.
func (s *Service) SolveDate(ctx context.Context, date time.Time, initialSOC float64) (model.DailyResult, error) {
	return s.scheduler.SolveDate(ctx, date, initialSOC)
}

func (s *Service) writeOutputs(start time.Time, res *scheduler.Result, runErr error) error {
	if res == nil {
		return nil
	}
	out := s.cfg.Output
	var errs []error
	if out.DispatchPath != "" {
		errs = append(errs, writeFile(out.DispatchPath, func(w io.Writer) error {
			return export.WriteDispatchCSV(w, res.Days)
		}))
	}
	if out.SummaryPath != "" {
		errs = append(errs, writeFile(out.SummaryPath, func(w io.Writer) error {
			return export.WriteSummaryCSV(w, res.Days)
		}))
	}
	if out.ReportPath != "" {
		rep := export.NewReport(res.RunID, start, s.battery, res.Days, res.FinalSOC)
		if runErr != nil {
			rep.Error = runErr.Error()
		}
		errs = append(errs, writeFile(out.ReportPath, func(w io.Writer) error {
			return export.WriteJSON(w, rep)
		}))
	}
	if out.ChartPath != "" {
		errs = append(errs, writeFile(out.ChartPath, func(w io.Writer) error {
			return export.WriteChartHTML(w, res.Days)
		}))
	}
	return errors.Join(errs...)
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func failureTags(start time.Time, res *scheduler.Result) map[string]string {
	tags := map[string]string{"start": start.Format(time.DateOnly)}
	if res != nil {
		tags["run_id"] = res.RunID
		tags["days_completed"] = strconv.Itoa(len(res.Days))
	}
	return tags
}

// Close flushes pending error reports and releases the result sinks.
func (s *Service) Close() error {
	s.monitor.Flush(2 * time.Second)
	return coremetrics.Close(s.sink)
}
