package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/bessarb/core/model"
)

// DayRecord is one solved (or skipped) day of a run.
type DayRecord struct {
	RunID         string
	Index         int
	Day           model.DailyResult
	SolveDuration time.Duration
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID       string
	Start       time.Time
	Days        int
	Solved      int
	Skipped     int
	TotalProfit float64
	FinalSOC    float64
	Failed      bool
	Duration    time.Duration
}

// Sink records day results for observability purposes.
type Sink interface {
	RecordDay(ctx context.Context, rec DayRecord) error
}

// RunRecorder records the run summary once the run is over.
type RunRecorder interface {
	RecordRun(ctx context.Context, sum RunSummary) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordDay(context.Context, DayRecord) error { return nil }

func (NopSink) RecordRun(context.Context, RunSummary) error { return nil }

// Close releases the sink when it implements io.Closer.
func Close(s Sink) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
