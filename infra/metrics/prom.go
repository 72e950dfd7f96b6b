package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
)

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	Listen  string `json:"listen"`   // serve /metrics on this address while the process runs
	PushURL string `json:"push_url"` // push to a Pushgateway when the run is over
	Job     string `json:"job"`
}

// SetDefaults applies sane defaults.
func (c *PromConfig) SetDefaults() {
	if c.Job == "" {
		c.Job = "bessarb"
	}
}

// PromSink records day results in Prometheus metrics.
type PromSink struct {
	cfg      PromConfig
	gatherer prometheus.Gatherer

	days     *prometheus.CounterVec
	volume   *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	profit   prometheus.Gauge
	total    prometheus.Gauge
	soc      prometheus.Gauge

	stop context.CancelFunc
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	cfg.SetDefaults()
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{cfg: cfg, gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	var err error
	if s.days, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bess_days_total",
		Help: "Number of days processed, by solver status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.volume, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bess_traded_energy_mwh_total",
		Help: "Energy traded per product and side",
	}, []string{"product", "side"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bess_runs_total",
		Help: "Number of finished rolling runs, by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bess_solve_duration_seconds",
		Help:    "Time spent building and solving one day",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})); err != nil {
		return nil, err
	}
	if s.profit, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bess_day_profit",
		Help: "Realised profit of the last processed day",
	})); err != nil {
		return nil, err
	}
	if s.total, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bess_run_profit",
		Help: "Cumulative realised profit of the current run",
	})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bess_soc_mwh",
		Help: "State of charge at the end of the last processed day",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDay updates the day metrics.
func (s *PromSink) RecordDay(_ context.Context, rec coremetrics.DayRecord) error {
	d := rec.Day
	if rec.Index == 0 {
		s.total.Set(0)
	}
	s.days.WithLabelValues(d.Status).Inc()
	s.duration.Observe(rec.SolveDuration.Seconds())
	s.profit.Set(d.Profit)
	s.total.Add(d.Profit)
	s.soc.Set(d.FinalSOC)
	for _, r := range d.Rows {
		for p := model.Product(0); p < model.NumProducts; p++ {
			if r.Purchase[p] > 0 {
				s.volume.WithLabelValues(p.String(), "purchase").Add(r.Purchase[p])
			}
			if r.Sale[p] > 0 {
				s.volume.WithLabelValues(p.String(), "sale").Add(r.Sale[p])
			}
		}
	}
	return nil
}

// RecordRun counts the run and pushes to the Pushgateway when configured.
func (s *PromSink) RecordRun(ctx context.Context, sum coremetrics.RunSummary) error {
	outcome := "ok"
	if sum.Failed {
		outcome = "failed"
	}
	s.runs.WithLabelValues(outcome).Inc()
	if s.cfg.PushURL == "" {
		return nil
	}
	if err := push.New(s.cfg.PushURL, s.cfg.Job).Gatherer(s.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Close stops the metrics endpoint started by the factory, if any.
func (s *PromSink) Close() error {
	if s.stop != nil {
		s.stop()
	}
	return nil
}
