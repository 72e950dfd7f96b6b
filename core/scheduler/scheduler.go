package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/bessarb/core/logger"
	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/optimize"
	"github.com/kilianp07/bessarb/core/profit"
	"github.com/kilianp07/bessarb/core/solver"
	"github.com/kilianp07/bessarb/internal/eventbus"
)

// DayEvent is published after each day of a run.
type DayEvent struct {
	RunID string
	Index int // zero based
	Total int
	Day   model.DailyResult
}

// Result aggregates a rolling run.
type Result struct {
	RunID       string
	Days        []model.DailyResult
	TotalProfit float64
	FinalSOC    float64
}

// Scheduler sequences the daily solves of a rolling run.
type Scheduler struct {
	cfg       Config
	battery   model.BatteryParameters
	feed      PriceFeed
	solver    solver.Solver
	valuation TerminalValuation
	sink      coremetrics.Sink
	bus       *eventbus.Bus[DayEvent]
	log       logger.Logger
	now       func() time.Time
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithSink records every day on the given sink.
func WithSink(s coremetrics.Sink) Option { return func(sc *Scheduler) { sc.sink = s } }

// WithEventBus publishes a DayEvent after each day.
func WithEventBus(b *eventbus.Bus[DayEvent]) Option { return func(sc *Scheduler) { sc.bus = b } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(sc *Scheduler) { sc.log = l } }

// WithValuation overrides the terminal valuation policy named in the config.
func WithValuation(v TerminalValuation) Option { return func(sc *Scheduler) { sc.valuation = v } }

// New validates the configuration and returns a Scheduler.
func New(cfg Config, battery model.BatteryParameters, feed PriceFeed, slv solver.Solver, opts ...Option) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := battery.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(battery); err != nil {
		return nil, err
	}
	if feed == nil || slv == nil {
		return nil, errors.New("scheduler requires a price feed and a solver")
	}
	val, err := NewValuation(cfg.TerminalValuation, cfg.TerminalPrice)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:       cfg,
		battery:   battery,
		feed:      feed,
		solver:    slv,
		valuation: val,
		sink:      coremetrics.NopSink{},
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// SolveDay builds and solves one day starting from initialSOC. A non-optimal
// status yields a result carrying the status and an error wrapping
// model.ErrInfeasible; no profit is reported for it.
func (s *Scheduler) SolveDay(ctx context.Context, prices model.DayPrices, terminalPrice, initialSOC float64) (model.DailyResult, error) {
	res := model.DailyResult{
		Date:          prices.Date,
		TerminalPrice: terminalPrice,
		InitialSOC:    initialSOC,
		Status:        solver.NotSolved.String(),
	}
	dm, err := optimize.BuildDay(optimize.DayInput{Prices: prices, TerminalPrice: terminalPrice, InitialSOC: initialSOC}, s.battery)
	if err != nil {
		return res, err
	}
	sol, err := s.solver.Solve(ctx, dm.Problem)
	res.Status = sol.Status.String()
	if err != nil {
		return res, fmt.Errorf("solve %s: %w", prices.Date.Format(time.DateOnly), err)
	}
	if sol.Status != solver.Optimal {
		return res, fmt.Errorf("%w: %s solved with status %s %s",
			model.ErrInfeasible, prices.Date.Format(time.DateOnly), sol.Status, sol.Message)
	}

	d := dm.Extract(sol.Values)
	res.Objective = sol.Objective
	res.Profit = profit.Realized(prices, d)
	res.FinalSOC = d.FinalSOC()
	res.Rows = d.Rows(prices.Times)
	return res, nil
}

// Run solves days consecutive days from start. On error the result holds the
// days completed so far.
func (s *Scheduler) Run(ctx context.Context, start time.Time, days int) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), FinalSOC: s.cfg.InitialSOC}
	began := s.now()
	summary := coremetrics.RunSummary{RunID: res.RunID, Start: start, Days: days}
	defer func() {
		summary.TotalProfit = res.TotalProfit
		summary.FinalSOC = res.FinalSOC
		summary.Duration = s.now().Sub(began)
		if rr, ok := s.sink.(coremetrics.RunRecorder); ok {
			if err := rr.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
				s.log.Errorf("record run: %v", err)
			}
		}
	}()

	_, wantNext := s.valuation.(lookahead)
	soc := s.cfg.InitialSOC
	var pending *model.DayPrices
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		var prices model.DayPrices
		if pending != nil {
			prices, pending = *pending, nil
		} else {
			p, err := s.loadDay(ctx, date)
			if err != nil {
				summary.Failed = true
				return res, err
			}
			prices = p
		}
		// the last day of the horizon is valued on its own prices
		if wantNext && i < days-1 {
			if next, err := s.loadDay(ctx, date.AddDate(0, 0, 1)); err == nil {
				pending = &next
			} else {
				s.log.Debugf("next day unavailable for %s: %v", date.Format(time.DateOnly), err)
			}
		}
		terminal := s.valuation.Price(prices, pending)

		t0 := s.now()
		day, err := s.SolveDay(ctx, prices, terminal, soc)
		elapsed := s.now().Sub(t0)
		if err != nil {
			if !errors.Is(err, model.ErrInfeasible) || s.cfg.OnFailure != OnFailureSkip {
				summary.Failed = true
				s.log.Errorf("day %s failed with status %s: %v", date.Format(time.DateOnly), day.Status, err)
				return res, err
			}
			s.log.Warnf("skipping day %s: %v", date.Format(time.DateOnly), err)
			day = idleDay(prices, day.Status, terminal, soc)
			summary.Skipped++
		} else {
			summary.Solved++
		}

		// the defining coupling between consecutive days
		soc = day.FinalSOC
		res.Days = append(res.Days, day)
		res.TotalProfit += day.Profit
		res.FinalSOC = soc

		s.log.Infow("day solved", map[string]any{
			"run_id":      res.RunID,
			"date":        date.Format(time.DateOnly),
			"status":      day.Status,
			"profit":      day.Profit,
			"objective":   day.Objective,
			"initial_soc": day.InitialSOC,
			"final_soc":   day.FinalSOC,
			"elapsed_ms":  elapsed.Milliseconds(),
		})
		if err := s.sink.RecordDay(ctx, coremetrics.DayRecord{RunID: res.RunID, Index: i, Day: day, SolveDuration: elapsed}); err != nil {
			s.log.Errorf("record day %s: %v", date.Format(time.DateOnly), err)
		}
		if s.bus != nil {
			s.bus.Publish(DayEvent{RunID: res.RunID, Index: i, Total: days, Day: day})
		}
	}
	return res, nil
}

// SolveDate loads the prices of date, values the terminal state of charge
// with the configured policy and solves the day from initialSOC.
func (s *Scheduler) SolveDate(ctx context.Context, date time.Time, initialSOC float64) (model.DailyResult, error) {
	if initialSOC < 0 || initialSOC > s.battery.CapacityMWh {
		return model.DailyResult{}, fmt.Errorf("%w: initial soc %v outside [0, %v]", model.ErrConfig, initialSOC, s.battery.CapacityMWh)
	}
	prices, err := s.loadDay(ctx, date)
	if err != nil {
		return model.DailyResult{}, err
	}
	var next *model.DayPrices
	if _, ok := s.valuation.(lookahead); ok {
		if p, err := s.loadDay(ctx, date.AddDate(0, 0, 1)); err == nil {
			next = &p
		}
	}
	return s.SolveDay(ctx, prices, s.valuation.Price(prices, next), initialSOC)
}

func (s *Scheduler) loadDay(ctx context.Context, date time.Time) (model.DayPrices, error) {
	raw, err := s.feed.Day(ctx, date)
	if err != nil {
		return model.DayPrices{}, fmt.Errorf("prices for %s: %w", date.Format(time.DateOnly), err)
	}
	return CheckDay(date, raw, s.cfg.PeriodsPerDay)
}

// idleDay is the record of a skipped day: nothing traded, state of charge held.
func idleDay(prices model.DayPrices, status string, terminal, soc float64) model.DailyResult {
	rows := make([]model.DispatchRow, prices.Len())
	for t := range rows {
		rows[t] = model.DispatchRow{Time: prices.Times[t], SOC: soc}
	}
	return model.DailyResult{
		Date:          prices.Date,
		Status:        status,
		TerminalPrice: terminal,
		InitialSOC:    soc,
		FinalSOC:      soc,
		Skipped:       true,
		Rows:          rows,
	}
}
