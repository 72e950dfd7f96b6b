package metrics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/test/util"
)

func sampleDay(profit, soc float64) model.DailyResult {
	date := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	return model.DailyResult{
		Date:     date,
		Status:   "Optimal",
		Profit:   profit,
		FinalSOC: soc,
		Rows: []model.DispatchRow{
			{Time: date, Purchase: [3]float64{0.5, 0, 0.25}},
			{Time: date.Add(30 * time.Minute), SOC: 0.7, Sale: [3]float64{0, 0.6, 0.25}},
		},
	}
}

func TestPromSink_RecordDay(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.RecordDay(ctx, coremetrics.DayRecord{Index: 0, Day: sampleDay(100, 0.5), SolveDuration: 200 * time.Millisecond}))
	require.NoError(t, sink.RecordDay(ctx, coremetrics.DayRecord{Index: 1, Day: sampleDay(-20, 0.1)}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.days.WithLabelValues("Optimal")))
	assert.Equal(t, -20.0, testutil.ToFloat64(sink.profit))
	assert.Equal(t, 80.0, testutil.ToFloat64(sink.total))
	assert.Equal(t, 0.1, testutil.ToFloat64(sink.soc))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.volume.WithLabelValues("a", "purchase")))
	assert.Equal(t, 0.5, testutil.ToFloat64(sink.volume.WithLabelValues("block", "sale")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.duration))

	// a new run resets the cumulative profit
	require.NoError(t, sink.RecordDay(ctx, coremetrics.DayRecord{Index: 0, Day: sampleDay(5, 0)}))
	assert.Equal(t, 5.0, testutil.ToFloat64(sink.total))
}

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordRun(context.Background(), coremetrics.RunSummary{RunID: "r"}))
	require.NoError(t, sink.RecordRun(context.Background(), coremetrics.RunSummary{RunID: "r", Failed: true}))
	expected := `
# HELP bess_runs_total Number of finished rolling runs, by outcome
# TYPE bess_runs_total counter
bess_runs_total{outcome="failed"} 1
bess_runs_total{outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bess_runs_total"))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	assert.Same(t, first.days, second.days)
}

func TestStartPromServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordDay(context.Background(), coremetrics.DayRecord{Day: sampleDay(42, 0)}))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- StartPromServer(ctx, addr, reg) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer waitCancel()
	require.NoError(t, util.WaitForMetric(waitCtx, fmt.Sprintf("http://%s/metrics", addr), "bess_day_profit 42"))
	cancel()
	assert.NoError(t, <-errc)
}
