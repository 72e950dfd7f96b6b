package pricedata

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/scheduler"
)

// Config names the price files of a run.
type Config struct {
	MarketA   string `json:"market_a"`
	MarketB   string `json:"market_b"`
	Reference string `json:"reference"`
}

// Feed serves in-memory series one UTC day at a time.
type Feed struct {
	A, B, Reference Series
}

// LoadFeed reads the three price files named in cfg.
func LoadFeed(cfg Config) (*Feed, error) {
	var f Feed
	for _, src := range []struct {
		name string
		path string
		dst  *Series
	}{{"market_a", cfg.MarketA, &f.A}, {"market_b", cfg.MarketB, &f.B}, {"reference", cfg.Reference, &f.Reference}} {
		if src.path == "" {
			return nil, fmt.Errorf("%w: data.%s is required", model.ErrConfig, src.name)
		}
		s, err := LoadCSV(src.path)
		if err != nil {
			return nil, err
		}
		*src.dst = s
	}
	return &f, nil
}

// Day returns the points in [date, date+24h) of each series.
func (f *Feed) Day(ctx context.Context, date time.Time) (scheduler.DaySeries, error) {
	if err := ctx.Err(); err != nil {
		return scheduler.DaySeries{}, err
	}
	from := date.UTC()
	to := from.AddDate(0, 0, 1)
	ds := scheduler.DaySeries{
		A:         f.A.Window(from, to),
		B:         f.B.Window(from, to),
		Reference: f.Reference.Window(from, to),
	}
	if len(ds.A) == 0 && len(ds.B) == 0 && len(ds.Reference) == 0 {
		return ds, fmt.Errorf("%w: no prices on %s", model.ErrDataShape, from.Format(time.DateOnly))
	}
	return ds, nil
}

var _ scheduler.PriceFeed = (*Feed)(nil)
