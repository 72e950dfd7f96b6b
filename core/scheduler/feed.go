package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/bessarb/core/model"
)

// DaySeries is the raw price data of one day as supplied by a data source.
type DaySeries struct {
	A         []model.PricePoint
	B         []model.PricePoint
	Reference []model.PricePoint
}

// PriceFeed supplies the prices of [date, date+24h).
type PriceFeed interface {
	Day(ctx context.Context, date time.Time) (DaySeries, error)
}

// CheckDay validates raw series and returns aligned day prices. Both markets
// must carry exactly periods points with identical timestamps and the
// reference series exactly one point.
func CheckDay(date time.Time, s DaySeries, periods int) (model.DayPrices, error) {
	for _, m := range []struct {
		name string
		pts  []model.PricePoint
	}{{model.MarketA.String(), s.A}, {model.MarketB.String(), s.B}} {
		if len(m.pts) != periods {
			return model.DayPrices{}, fmt.Errorf("%w: market %s has %d points on %s, expected %d",
				model.ErrDataShape, m.name, len(m.pts), date.Format(time.DateOnly), periods)
		}
	}
	if len(s.Reference) != 1 {
		return model.DayPrices{}, fmt.Errorf("%w: expected 1 reference point on %s, got %d",
			model.ErrDataShape, date.Format(time.DateOnly), len(s.Reference))
	}
	return model.NewDayPrices(date, s.A, s.B, s.Reference[0].Price)
}
