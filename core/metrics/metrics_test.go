package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/bessarb/core/factory"
)

type recordingSink struct {
	days   []DayRecord
	runs   []RunSummary
	err    error
	closed bool
}

func (r *recordingSink) RecordDay(_ context.Context, rec DayRecord) error {
	r.days = append(r.days, rec)
	return r.err
}

func (r *recordingSink) RecordRun(_ context.Context, sum RunSummary) error {
	r.runs = append(r.runs, sum)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestMultiSink_ForwardsAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}
	m := NewMultiSink(ok, bad, NopSink{})

	err := m.RecordDay(context.Background(), DayRecord{RunID: "r", Index: 1})
	assert.ErrorContains(t, err, "boom")
	require.Len(t, ok.days, 1)
	assert.Equal(t, 1, ok.days[0].Index)

	assert.Error(t, m.RecordRun(context.Background(), RunSummary{RunID: "r"}))
	assert.Len(t, ok.runs, 1)

	require.NoError(t, m.Close())
	assert.True(t, ok.closed)
	assert.True(t, bad.closed)
}

func TestNewSink(t *testing.T) {
	rec := &recordingSink{}
	require.NoError(t, RegisterSink("test-recording", func(map[string]any) (Sink, error) { return rec, nil }))

	s, err := NewSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	data := `sinks:
  - type: test-recording
  - type: test-recording
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	s, err = NewSink(cfg.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &MultiSink{}, s)

	_, err = NewSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}
