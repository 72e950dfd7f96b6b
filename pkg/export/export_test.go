package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessarb/core/model"
)

func days() []model.DailyResult {
	d1 := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return []model.DailyResult{
		{
			Date: d1, Status: "Optimal", Profit: 0.1, FinalSOC: 0.5, TerminalPrice: 40,
			Rows: []model.DispatchRow{
				{Time: d1, SOC: 0, Purchase: [3]float64{0.5, 0, 0.25}},
				{Time: d1.Add(30 * time.Minute), SOC: 0.7, Sale: [3]float64{0, 0.2, 0.25}},
			},
		},
		{
			Date: d2, Status: "Infeasible", Skipped: true, Profit: 0.2, InitialSOC: 0.5, FinalSOC: 0.5,
			Rows: []model.DispatchRow{{Time: d2, SOC: 0.5}},
		},
	}
}

func TestWriteDispatchCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDispatchCSV(&buf, days()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, DispatchHeader, recs[0])
	assert.Equal(t, []string{"2018-03-01T00:00:00Z", "0", "0.5", "0", "0.25", "0", "0", "0"}, recs[1])
	assert.Equal(t, []string{"2018-03-01T00:30:00Z", "0.7", "0", "0", "0", "0", "0.2", "0.25"}, recs[2])
	assert.Equal(t, "2018-03-02T00:00:00Z", recs[3][0])
}

func TestDispatchWriter_Incremental(t *testing.T) {
	var buf bytes.Buffer
	dw, err := NewDispatchWriter(&buf)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(DispatchHeader, ",")+"\n", buf.String())

	require.NoError(t, dw.WriteDay(days()[1]))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, days()))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, SummaryHeader, recs[0])
	assert.Equal(t, []string{"2018-03-01", "Optimal", "0.1", "0", "0.5", "40", "false"}, recs[1])
	assert.Equal(t, "true", recs[2][6])
	// decimal arithmetic keeps 0.1 + 0.2 exact
	assert.Equal(t, []string{"total", "", "0.3", "", "", "", ""}, recs[3])
}

func TestWriteJSON(t *testing.T) {
	r := NewReport("run1", time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), model.DefaultBatteryParameters(), days(), 0.5)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run1", got["run_id"])
	assert.Equal(t, "2018-03-01", got["start"])
	assert.Equal(t, "0.3", got["total_profit"])
	results, ok := got["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, true, results[1].(map[string]any)["skipped"])
	battery, ok := got["battery"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 50.0, battery["capacity_mwh"])
}

func TestWriteChartHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChartHTML(&buf, days()))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "State of charge")
	assert.Contains(t, html, "Daily profit")
}
