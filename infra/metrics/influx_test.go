package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordDay(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer func() { _ = sink.Close() }()

	day := sampleDay(12.3456, 0.5)
	rec := coremetrics.DayRecord{RunID: "run1", Day: day, SolveDuration: 1500 * time.Millisecond}
	require.NoError(t, sink.RecordDay(context.Background(), rec))

	got := bodies()
	require.Len(t, got, 1)
	lines := strings.Split(got[0], "\n")
	require.Len(t, lines, 3)

	p := write.NewPointWithMeasurement("bess_day").
		AddTag("run_id", "run1").
		AddTag("status", "Optimal").
		AddTag("skipped", "false").
		AddField("profit", 12.346).
		AddField("objective", 0.0).
		AddField("terminal_price", 0.0).
		AddField("initial_soc", 0.0).
		AddField("final_soc", 0.5).
		AddField("solve_ms", int64(1500)).
		SetTime(day.Date)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "bess_dispatch,run_id=run1 "))
	assert.Contains(t, lines[1], "purchase_a=0.5")
	assert.Contains(t, lines[2], "sale_block=0.25")
}

func TestInfluxSink_RecordRun(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer func() { _ = sink.Close() }()

	require.NoError(t, sink.RecordRun(context.Background(), coremetrics.RunSummary{
		RunID: "run1", Start: time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), Days: 3, Solved: 3, TotalProfit: 99.5,
	}))
	got := bodies()
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "bess_run,"))
	assert.Contains(t, got[0], "run_id=run1")
	assert.Contains(t, got[0], "failed=false")
	assert.Contains(t, got[0], "total_profit=99.5")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}
