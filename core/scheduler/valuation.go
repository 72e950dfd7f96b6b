package scheduler

import (
	"fmt"

	"github.com/kilianp07/bessarb/core/model"
)

// TerminalValuation prices the energy left in storage at the end of a day.
// next is nil when the following day is unknown.
type TerminalValuation interface {
	Name() string
	Price(today model.DayPrices, next *model.DayPrices) float64
}

// lookahead is implemented by policies that need the next day's prices.
type lookahead interface {
	NeedsNextDay() bool
}

// NewValuation returns the named policy.
func NewValuation(name string, fixed float64) (TerminalValuation, error) {
	switch name {
	case "", ValuationSameDayAverage:
		return SameDayAverage{}, nil
	case ValuationNextDayOpening:
		return NextDayOpening{}, nil
	case ValuationFixed:
		return FixedPrice{Value: fixed}, nil
	default:
		return nil, fmt.Errorf("%w: unknown terminal valuation %q", model.ErrConfig, name)
	}
}

// SameDayAverage is the mean of every half-hourly price of both markets and
// the reference price counted once per half-hour.
type SameDayAverage struct{}

func (SameDayAverage) Name() string { return ValuationSameDayAverage }

func (SameDayAverage) Price(today model.DayPrices, _ *model.DayPrices) float64 {
	n := today.Len()
	if n == 0 {
		return today.Reference
	}
	sum := today.Reference * float64(n)
	for _, m := range model.Markets {
		for t := 0; t < n; t++ {
			sum += today.Continuous.At(m, t)
		}
	}
	return sum / float64(3*n)
}

// NextDayOpening uses the mean of both markets' first half-hour of the next
// day and falls back to SameDayAverage when the next day is unknown.
type NextDayOpening struct{}

func (NextDayOpening) Name() string { return ValuationNextDayOpening }

func (NextDayOpening) NeedsNextDay() bool { return true }

func (NextDayOpening) Price(today model.DayPrices, next *model.DayPrices) float64 {
	if next == nil || next.Len() == 0 {
		return SameDayAverage{}.Price(today, nil)
	}
	return (next.Continuous.At(model.MarketA, 0) + next.Continuous.At(model.MarketB, 0)) / 2
}

// FixedPrice values stored energy at a constant price.
type FixedPrice struct {
	Value float64
}

func (FixedPrice) Name() string { return ValuationFixed }

func (f FixedPrice) Price(model.DayPrices, *model.DayPrices) float64 { return f.Value }
