package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settlement period lengths in hours.
const (
	HalfHourHours = 0.5
	DayHours      = 24.0
)

// BatteryParameters describes the physical and economic limits of a storage asset.
type BatteryParameters struct {
	CapacityMWh     float64 `json:"capacity_mwh" yaml:"capacity_mwh"`           // maximum stored energy
	ChargeRateMW    float64 `json:"charge_rate_mw" yaml:"charge_rate_mw"`       // max power drawn from the grid
	DischargeRateMW float64 `json:"discharge_rate_mw" yaml:"discharge_rate_mw"` // max power delivered to the grid
	ChargeLoss      float64 `json:"charge_loss" yaml:"charge_loss"`             // fraction of purchased energy lost when charging
	DischargeLoss   float64 `json:"discharge_loss" yaml:"discharge_loss"`       // fraction of withdrawn energy lost when discharging
	LifetimeYears   int     `json:"lifetime_years" yaml:"lifetime_years"`
	MaxCycles       int     `json:"max_cycles" yaml:"max_cycles"`
	Capex           float64 `json:"capex" yaml:"capex"`
	Opex            float64 `json:"opex" yaml:"opex"`
}

// DefaultBatteryParameters returns the BEIS 2018 reference battery
// (New Battery Storage FM data, table 7).
func DefaultBatteryParameters() BatteryParameters {
	return BatteryParameters{
		CapacityMWh:     50,
		ChargeRateMW:    50,
		DischargeRateMW: 50,
		ChargeLoss:      0.05,
		DischargeLoss:   0.05,
		LifetimeYears:   15,
		MaxCycles:       1500,
		Capex:           118_717_286,
		Opex:            1_335_001,
	}
}

// NewBatteryParameters validates p and returns it.
func NewBatteryParameters(p BatteryParameters) (BatteryParameters, error) {
	if err := p.Validate(); err != nil {
		return BatteryParameters{}, err
	}
	return p, nil
}

// Validate rejects non-physical parameters. Losses must lie in [0,1).
func (p BatteryParameters) Validate() error {
	if p.ChargeLoss < 0 || p.ChargeLoss >= 1 {
		return fmt.Errorf("%w: charge loss %v outside [0,1)", ErrConfig, p.ChargeLoss)
	}
	if p.DischargeLoss < 0 || p.DischargeLoss >= 1 {
		return fmt.Errorf("%w: discharge loss %v outside [0,1)", ErrConfig, p.DischargeLoss)
	}
	if p.CapacityMWh < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrConfig)
	}
	if p.ChargeRateMW < 0 || p.DischargeRateMW < 0 {
		return fmt.Errorf("%w: power ratings must not be negative", ErrConfig)
	}
	return nil
}

// HalfHourChargeLimit is the energy that can be bought in one half-hour.
func (p BatteryParameters) HalfHourChargeLimit() float64 { return p.ChargeRateMW * HalfHourHours }

// HalfHourDischargeLimit is the energy that can be sold in one half-hour.
func (p BatteryParameters) HalfHourDischargeLimit() float64 { return p.DischargeRateMW * HalfHourHours }

// DailyPurchaseLimit bounds the block purchase for one day.
func (p BatteryParameters) DailyPurchaseLimit() float64 { return p.ChargeRateMW * DayHours }

// DailySaleLimit bounds the block sale for one day.
func (p BatteryParameters) DailySaleLimit() float64 { return p.DischargeRateMW * DayHours }

// ChargeFactor is the fraction of purchased energy retained in storage.
func (p BatteryParameters) ChargeFactor() float64 { return 1 - p.ChargeLoss }

// DischargeFactor is the energy withdrawn from storage per unit delivered.
func (p BatteryParameters) DischargeFactor() float64 { return 1 / (1 - p.DischargeLoss) }

// LoadBatteryFile reads battery parameters from a YAML or JSON preset.
// JSON is a subset of YAML so both go through the YAML decoder.
func LoadBatteryFile(path string) (BatteryParameters, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return BatteryParameters{}, fmt.Errorf("unsupported battery file format: %s", ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return BatteryParameters{}, err
	}
	var p BatteryParameters
	if err := yaml.Unmarshal(b, &p); err != nil {
		return BatteryParameters{}, fmt.Errorf("decode battery file: %w", err)
	}
	return NewBatteryParameters(p)
}
