package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/infra/logger"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes day results and the half-hourly dispatch to InfluxDB
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDay writes one bess_day point and one bess_dispatch point per half-hour.
func (s *InfluxSink) RecordDay(ctx context.Context, rec coremetrics.DayRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, dayPoints(rec)...)
}

func dayPoints(rec coremetrics.DayRecord) []*write.Point {
	d := rec.Day
	pts := make([]*write.Point, 0, len(d.Rows)+1)
	pts = append(pts, write.NewPointWithMeasurement("bess_day").
		AddTag("run_id", rec.RunID).
		AddTag("status", d.Status).
		AddTag("skipped", strconv.FormatBool(d.Skipped)).
		AddField("profit", round3(d.Profit)).
		AddField("objective", round3(d.Objective)).
		AddField("terminal_price", round3(d.TerminalPrice)).
		AddField("initial_soc", round3(d.InitialSOC)).
		AddField("final_soc", round3(d.FinalSOC)).
		AddField("solve_ms", rec.SolveDuration.Milliseconds()).
		SetTime(d.Date))
	for _, r := range d.Rows {
		p := write.NewPointWithMeasurement("bess_dispatch").
			AddTag("run_id", rec.RunID).
			AddField("soc", round3(r.SOC))
		for prod := model.Product(0); prod < model.NumProducts; prod++ {
			p = p.AddField("purchase_"+prod.String(), round3(r.Purchase[prod])).
				AddField("sale_"+prod.String(), round3(r.Sale[prod]))
		}
		pts = append(pts, p.SetTime(r.Time))
	}
	return pts
}

// RecordRun writes a bess_run point.
func (s *InfluxSink) RecordRun(ctx context.Context, sum coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bess_run").
		AddTag("run_id", sum.RunID).
		AddTag("failed", strconv.FormatBool(sum.Failed)).
		AddField("days", sum.Days).
		AddField("solved", sum.Solved).
		AddField("skipped", sum.Skipped).
		AddField("total_profit", round3(sum.TotalProfit)).
		AddField("final_soc", round3(sum.FinalSOC)).
		AddField("duration_ms", sum.Duration.Milliseconds()).
		SetTime(sum.Start)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
