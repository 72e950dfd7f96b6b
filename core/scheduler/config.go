package scheduler

import (
	"fmt"
	"time"

	"github.com/kilianp07/bessarb/core/model"
)

// Terminal valuation policy names.
const (
	ValuationSameDayAverage = "same_day_average"
	ValuationNextDayOpening = "next_day_opening"
	ValuationFixed          = "fixed"
)

// Failure policy names.
const (
	OnFailureAbort = "abort"
	OnFailureSkip  = "skip"
)

// DefaultPeriodsPerDay is the number of half-hours in a settlement day.
const DefaultPeriodsPerDay = 48

// Config defines the rolling run parameters loaded from configuration.
type Config struct {
	Start             string  `json:"start" validate:"omitempty,datetime=2006-01-02"`
	Days              int     `json:"days" validate:"gte=0"`
	PeriodsPerDay     int     `json:"periods_per_day" validate:"gte=0"`
	InitialSOC        float64 `json:"initial_soc" validate:"gte=0"`
	TerminalValuation string  `json:"terminal_valuation" validate:"omitempty,oneof=same_day_average next_day_opening fixed"`
	TerminalPrice     float64 `json:"terminal_price"`
	OnFailure         string  `json:"on_failure" validate:"omitempty,oneof=abort skip"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PeriodsPerDay == 0 {
		c.PeriodsPerDay = DefaultPeriodsPerDay
	}
	if c.TerminalValuation == "" {
		c.TerminalValuation = ValuationSameDayAverage
	}
	if c.OnFailure == "" {
		c.OnFailure = OnFailureAbort
	}
	if c.Days == 0 {
		c.Days = 1
	}
}

// Validate checks the run parameters against the battery.
func (c Config) Validate(battery model.BatteryParameters) error {
	if c.InitialSOC < 0 || c.InitialSOC > battery.CapacityMWh {
		return fmt.Errorf("%w: initial_soc %v outside [0, %v]", model.ErrConfig, c.InitialSOC, battery.CapacityMWh)
	}
	if c.OnFailure != OnFailureAbort && c.OnFailure != OnFailureSkip {
		return fmt.Errorf("%w: unknown on_failure %q", model.ErrConfig, c.OnFailure)
	}
	if _, err := NewValuation(c.TerminalValuation, c.TerminalPrice); err != nil {
		return err
	}
	return nil
}

// StartDate parses Start as a UTC date.
func (c Config) StartDate() (time.Time, error) {
	if c.Start == "" {
		return time.Time{}, fmt.Errorf("%w: start date is required", model.ErrConfig)
	}
	d, err := time.ParseInLocation(time.DateOnly, c.Start, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start: %v", model.ErrConfig, err)
	}
	return d, nil
}
