package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/bessarb/core/factory"
	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/infra/logger"
	"github.com/kilianp07/bessarb/infra/mqtt"
	"github.com/kilianp07/bessarb/infra/store"
)

// init registers built-in result sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterSink("prometheus", func(conf map[string]any) (coremetrics.Sink, error) {
		var c PromConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		sink, err := NewPromSinkWithRegistry(c, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		if c.Listen != "" {
			ctx, cancel := context.WithCancel(context.Background())
			sink.stop = cancel
			log := logger.New("prom_server")
			go func() {
				if err := StartPromServer(ctx, c.Listen, prometheus.DefaultGatherer); err != nil {
					log.Errorf("prom server: %v", err)
				}
			}()
		}
		return sink, nil
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})

	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c mqtt.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return mqtt.NewResultSink(c)
	})

	_ = coremetrics.RegisterSink("sqlite", func(conf map[string]any) (coremetrics.Sink, error) {
		var c store.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(c)
	})
}
