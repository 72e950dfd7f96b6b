package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// ResultSink publishes day results and run summaries as JSON messages:
//
//	<prefix>/runs/<run_id>/days/<date>
//	<prefix>/runs/<run_id>/summary
type ResultSink struct {
	pub    publisher
	prefix string
	qos    byte
	retain bool
	rows   bool
}

// NewResultSink connects to the broker described by cfg.
func NewResultSink(cfg Config) (*ResultSink, error) {
	cfg.SetDefaults()
	cli, err := NewPahoClient(cfg)
	if err != nil {
		return nil, err
	}
	return newResultSink(cli, cfg), nil
}

func newResultSink(pub publisher, cfg Config) *ResultSink {
	return &ResultSink{pub: pub, prefix: cfg.TopicPrefix, qos: cfg.QoS, retain: cfg.Retain, rows: cfg.PublishRows}
}

// DayMessage is the payload published for every day of a run.
type DayMessage struct {
	RunID         string              `json:"run_id"`
	Index         int                 `json:"index"`
	Date          string              `json:"date"`
	Status        string              `json:"status"`
	Skipped       bool                `json:"skipped,omitempty"`
	Profit        float64             `json:"profit"`
	Objective     float64             `json:"objective"`
	TerminalPrice float64             `json:"terminal_price"`
	InitialSOC    float64             `json:"initial_soc"`
	FinalSOC      float64             `json:"final_soc"`
	SolveMS       int64               `json:"solve_ms"`
	Rows          []model.DispatchRow `json:"rows,omitempty"`
}

// SummaryMessage is the payload published once a run is over.
type SummaryMessage struct {
	RunID       string  `json:"run_id"`
	Start       string  `json:"start"`
	Days        int     `json:"days"`
	Solved      int     `json:"solved"`
	Skipped     int     `json:"skipped"`
	Failed      bool    `json:"failed"`
	TotalProfit float64 `json:"total_profit"`
	FinalSOC    float64 `json:"final_soc"`
	DurationMS  int64   `json:"duration_ms"`
}

// DayTopic returns the topic of a day message.
func (s *ResultSink) DayTopic(runID string, date time.Time) string {
	return fmt.Sprintf("%s/runs/%s/days/%s", s.prefix, runID, date.Format(time.DateOnly))
}

// SummaryTopic returns the topic of the run summary.
func (s *ResultSink) SummaryTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s/summary", s.prefix, runID)
}

func (s *ResultSink) RecordDay(_ context.Context, rec coremetrics.DayRecord) error {
	d := rec.Day
	msg := DayMessage{
		RunID:         rec.RunID,
		Index:         rec.Index,
		Date:          d.Date.Format(time.DateOnly),
		Status:        d.Status,
		Skipped:       d.Skipped,
		Profit:        d.Profit,
		Objective:     d.Objective,
		TerminalPrice: d.TerminalPrice,
		InitialSOC:    d.InitialSOC,
		FinalSOC:      d.FinalSOC,
		SolveMS:       rec.SolveDuration.Milliseconds(),
	}
	if s.rows {
		msg.Rows = d.Rows
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.pub.Publish(s.DayTopic(rec.RunID, d.Date), s.qos, s.retain, payload)
}

func (s *ResultSink) RecordRun(_ context.Context, sum coremetrics.RunSummary) error {
	payload, err := json.Marshal(SummaryMessage{
		RunID:       sum.RunID,
		Start:       sum.Start.Format(time.DateOnly),
		Days:        sum.Days,
		Solved:      sum.Solved,
		Skipped:     sum.Skipped,
		Failed:      sum.Failed,
		TotalProfit: sum.TotalProfit,
		FinalSOC:    sum.FinalSOC,
		DurationMS:  sum.Duration.Milliseconds(),
	})
	if err != nil {
		return err
	}
	return s.pub.Publish(s.SummaryTopic(sum.RunID), s.qos, s.retain, payload)
}

// Close disconnects from the broker.
func (s *ResultSink) Close() error {
	s.pub.Disconnect()
	return nil
}
