package model

import (
	"fmt"
	"time"
)

// Market identifies one of the continuous half-hourly markets.
type Market int

const (
	MarketA Market = iota
	MarketB
	// NumMarkets is the number of continuous markets.
	NumMarkets
)

// Markets lists the continuous markets in index order.
var Markets = [NumMarkets]Market{MarketA, MarketB}

// String returns the lower-case market label.
func (m Market) String() string {
	switch m {
	case MarketA:
		return "a"
	case MarketB:
		return "b"
	default:
		return "unknown"
	}
}

// Grid holds one value per continuous market and half-hour.
type Grid[T any] [NumMarkets][]T

// NewGrid allocates a grid with n periods per market.
func NewGrid[T any](n int) Grid[T] {
	var g Grid[T]
	for m := range g {
		g[m] = make([]T, n)
	}
	return g
}

// At returns the value for market m at period t.
func (g Grid[T]) At(m Market, t int) T { return g[m][t] }

// Set stores v for market m at period t.
func (g Grid[T]) Set(m Market, t int, v T) { g[m][t] = v }

// Len is the number of periods, taken from the first market.
func (g Grid[T]) Len() int { return len(g[MarketA]) }

// PricePoint is one timestamped price.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// DayPrices are the validated prices for one trading day.
type DayPrices struct {
	Date       time.Time
	Times      []time.Time   // start of each half-hour
	Continuous Grid[float64] // half-hourly prices per market
	Reference  float64       // block product price for the day
}

// Len is the number of half-hours in the day.
func (d DayPrices) Len() int { return len(d.Times) }

// NewDayPrices builds DayPrices from aligned series. It fails with ErrDataShape
// when the series lengths or timestamps differ.
func NewDayPrices(date time.Time, a, b []PricePoint, reference float64) (DayPrices, error) {
	if len(a) != len(b) {
		return DayPrices{}, fmt.Errorf("%w: market a has %d points, market b has %d", ErrDataShape, len(a), len(b))
	}
	if len(a) == 0 {
		return DayPrices{}, fmt.Errorf("%w: no half-hourly prices for %s", ErrDataShape, date.Format(time.DateOnly))
	}
	d := DayPrices{
		Date:       date,
		Times:      make([]time.Time, len(a)),
		Continuous: NewGrid[float64](len(a)),
		Reference:  reference,
	}
	for t := range a {
		if !a[t].Time.Equal(b[t].Time) {
			return DayPrices{}, fmt.Errorf("%w: timestamps differ at index %d (%s vs %s)",
				ErrDataShape, t, a[t].Time.Format(time.RFC3339), b[t].Time.Format(time.RFC3339))
		}
		d.Times[t] = a[t].Time
		d.Continuous.Set(MarketA, t, a[t].Price)
		d.Continuous.Set(MarketB, t, b[t].Price)
	}
	return d, nil
}
