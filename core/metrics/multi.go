package metrics

import (
	"context"
	"errors"
)

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDay forwards the record to all sinks and joins their errors.
func (m *MultiSink) RecordDay(ctx context.Context, rec DayRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordDay(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRun forwards the summary to sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(ctx context.Context, sum RunSummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRun(ctx, sum); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
