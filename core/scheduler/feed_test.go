package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessarb/core/model"
)

func TestCheckDay(t *testing.T) {
	good := series(day0, []float64{1, 2}, []float64{3, 4}, 5)

	prices, err := CheckDay(day0, good, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, prices.Len())
	assert.Equal(t, 5.0, prices.Reference)
	assert.Equal(t, 4.0, prices.Continuous.At(model.MarketB, 1))

	tests := []struct {
		name string
		s    DaySeries
	}{
		{"short market a", series(day0, []float64{1}, []float64{3, 4}, 5)},
		{"long market b", series(day0, []float64{1, 2}, []float64{3, 4, 5}, 5)},
		{"no reference", DaySeries{A: good.A, B: good.B}},
		{"two references", DaySeries{A: good.A, B: good.B, Reference: append(good.Reference, good.Reference...)}},
		{"misaligned", DaySeries{A: good.A, B: []model.PricePoint{good.B[0], {Time: day0.Add(time.Hour), Price: 4}}, Reference: good.Reference}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckDay(day0, tt.s, 2)
			assert.ErrorIs(t, err, model.ErrDataShape)
		})
	}
}

func TestValuations(t *testing.T) {
	today, err := CheckDay(day0, series(day0, []float64{10, 20}, []float64{30, 40}, 50), 2)
	require.NoError(t, err)
	next, err := CheckDay(day0.AddDate(0, 0, 1), series(day0.AddDate(0, 0, 1), []float64{12, 0}, []float64{18, 0}, 0), 2)
	require.NoError(t, err)

	// (10+20+30+40+2*50) / 6
	assert.InDelta(t, 200.0/6, SameDayAverage{}.Price(today, &next), 1e-12)
	assert.InDelta(t, 15.0, NextDayOpening{}.Price(today, &next), 1e-12)
	assert.InDelta(t, 200.0/6, NextDayOpening{}.Price(today, nil), 1e-12)
	assert.Equal(t, 42.0, FixedPrice{Value: 42}.Price(today, nil))

	v, err := NewValuation("", 0)
	require.NoError(t, err)
	assert.Equal(t, ValuationSameDayAverage, v.Name())
	v, err = NewValuation(ValuationFixed, 7)
	require.NoError(t, err)
	assert.Equal(t, FixedPrice{Value: 7}, v)
	_, err = NewValuation("oracle", 0)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultPeriodsPerDay, c.PeriodsPerDay)
	assert.Equal(t, ValuationSameDayAverage, c.TerminalValuation)
	assert.Equal(t, OnFailureAbort, c.OnFailure)
	assert.Equal(t, 1, c.Days)

	_, err := c.StartDate()
	assert.ErrorIs(t, err, model.ErrConfig)
	c.Start = "2018-03-01"
	d, err := c.StartDate()
	require.NoError(t, err)
	assert.Equal(t, day0, d)
	c.Start = "01/03/2018"
	_, err = c.StartDate()
	assert.ErrorIs(t, err, model.ErrConfig)
}
