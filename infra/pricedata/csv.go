// Package pricedata loads half-hourly and daily price series from CSV files
// and serves them day by day to the scheduler.
package pricedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/bessarb/core/model"
)

// Column names of a price file.
const (
	ColumnTime  = "datetime"
	ColumnPrice = "price"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Series is a price series ordered by time with unique timestamps.
type Series []model.PricePoint

// LoadCSV reads a price file.
func LoadCSV(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	s, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadCSV parses CSV data with a header holding at least the datetime and
// price columns. Timestamps without a zone are taken as UTC. The result is
// sorted; duplicate timestamps are rejected.
func ReadCSV(r io.Reader) (Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty price file", model.ErrDataShape)
	}
	if err != nil {
		return nil, err
	}
	ti, pi := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColumnTime:
			ti = i
		case ColumnPrice:
			pi = i
		}
	}
	if ti < 0 || pi < 0 {
		return nil, fmt.Errorf("%w: header must contain %q and %q columns", model.ErrDataShape, ColumnTime, ColumnPrice)
	}

	var s Series
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := parseTime(rec[ti])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", model.ErrDataShape, line, err)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(rec[pi]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: price %q", model.ErrDataShape, line, rec[pi])
		}
		s = append(s, model.PricePoint{Time: ts, Price: p})
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	for i := 1; i < len(s); i++ {
		if s[i].Time.Equal(s[i-1].Time) {
			return nil, fmt.Errorf("%w: duplicate timestamp %s", model.ErrDataShape, s[i].Time.Format(time.RFC3339))
		}
	}
	return s, nil
}

func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

// Window returns the points with from <= Time < to.
func (s Series) Window(from, to time.Time) []model.PricePoint {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(to) })
	if lo >= hi {
		return nil
	}
	return append([]model.PricePoint(nil), s[lo:hi]...)
}
