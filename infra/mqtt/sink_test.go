package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
)

var testDay = model.DailyResult{
	Date:          time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC),
	Status:        "Optimal",
	Objective:     120,
	Profit:        100,
	TerminalPrice: 40,
	InitialSOC:    0,
	FinalSOC:      0.5,
	Rows: []model.DispatchRow{
		{Time: time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), SOC: 0, Purchase: [3]float64{1, 0, 0}},
	},
}

func TestResultSink_RecordDay(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	sink, err := NewResultSink(Config{Broker: "tcp://localhost:1883", TopicPrefix: "site1", QoS: 1})
	require.NoError(t, err)

	require.NoError(t, sink.RecordDay(context.Background(), coremetrics.DayRecord{
		RunID: "run1", Index: 0, Day: testDay, SolveDuration: 1500 * time.Millisecond,
	}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "site1/runs/run1/days/2018-03-01", mc.published[0].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)

	var msg DayMessage
	require.NoError(t, json.Unmarshal(mc.payloads[0], &msg))
	assert.Equal(t, "2018-03-01", msg.Date)
	assert.Equal(t, 100.0, msg.Profit)
	assert.Equal(t, 0.5, msg.FinalSOC)
	assert.Equal(t, int64(1500), msg.SolveMS)
	assert.Empty(t, msg.Rows)
}

func TestResultSink_PublishRowsAndSummary(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	sink, err := NewResultSink(Config{Broker: "tcp://localhost:1883", PublishRows: true})
	require.NoError(t, err)

	require.NoError(t, sink.RecordDay(context.Background(), coremetrics.DayRecord{RunID: "run1", Day: testDay}))
	var msg DayMessage
	require.NoError(t, json.Unmarshal(mc.payloads[0], &msg))
	require.Len(t, msg.Rows, 1)
	assert.Equal(t, 1.0, msg.Rows[0].Purchase[model.ProductA])

	require.NoError(t, sink.RecordRun(context.Background(), coremetrics.RunSummary{
		RunID: "run1", Start: testDay.Date, Days: 1, Solved: 1, TotalProfit: 100, FinalSOC: 0.5,
	}))
	assert.Equal(t, "bessarb/runs/run1/summary", mc.published[1].topic)
	var sum SummaryMessage
	require.NoError(t, json.Unmarshal(mc.payloads[1], &sum))
	assert.Equal(t, 1, sum.Solved)
	assert.Equal(t, "2018-03-01", sum.Start)

	require.NoError(t, sink.Close())
	assert.Equal(t, 1, mc.disconnects)
}
