// Package optimize builds the daily battery trading problem.
//
// For each half-hour t and continuous market m the battery may buy and sell;
// a day-level block purchase and sale settle at the reference price and are
// spread evenly over the day. A binary charge-mode flag per half-hour forbids
// charging and discharging in the same period. The objective maximises trading
// cash flow plus the terminal value of the energy left in storage.
package optimize

import (
	"fmt"

	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/problem"
)

// DayInput gathers what is needed to build one day's problem.
type DayInput struct {
	Prices        model.DayPrices
	TerminalPrice float64 // value of one MWh left in storage at the end of the day
	InitialSOC    float64
}

// DayModel is a built problem together with handles to every variable group.
type DayModel struct {
	Problem       *problem.Problem
	Prices        model.DayPrices
	TerminalPrice float64

	Purchase      model.Grid[problem.Var]
	Sale          model.Grid[problem.Var]
	BlockPurchase problem.Var
	BlockSale     problem.Var
	SOC           []problem.Var
	ChargeMode    []problem.Var
}

// Periods returns the number of half-hours of the model.
func (d *DayModel) Periods() int { return len(d.ChargeMode) }

// Validate checks the inputs without creating any variable.
func (in DayInput) Validate(battery model.BatteryParameters) error {
	if err := battery.Validate(); err != nil {
		return err
	}
	p := in.Prices
	la, lb := len(p.Continuous[model.MarketA]), len(p.Continuous[model.MarketB])
	if la != lb {
		return fmt.Errorf("%w: market a has %d prices, market b has %d", model.ErrDataShape, la, lb)
	}
	if la == 0 {
		return fmt.Errorf("%w: no half-hourly prices", model.ErrDataShape)
	}
	if len(p.Times) != la {
		return fmt.Errorf("%w: %d timestamps for %d prices", model.ErrDataShape, len(p.Times), la)
	}
	if in.InitialSOC < 0 || in.InitialSOC > battery.CapacityMWh {
		return fmt.Errorf("%w: initial soc %v outside [0, %v]", model.ErrConfig, in.InitialSOC, battery.CapacityMWh)
	}
	return nil
}

// BuildDay constructs the day's mixed-integer program. Inputs are validated
// before any variable is created.
func BuildDay(in DayInput, battery model.BatteryParameters) (*DayModel, error) {
	if err := in.Validate(battery); err != nil {
		return nil, err
	}
	n := in.Prices.Len()
	share := 1 / float64(n)
	prob := problem.New("battery_trading", true)

	d := &DayModel{
		Problem:       prob,
		Prices:        in.Prices,
		TerminalPrice: in.TerminalPrice,
		Purchase:      model.NewGrid[problem.Var](n),
		Sale:          model.NewGrid[problem.Var](n),
		SOC:           make([]problem.Var, n+1),
		ChargeMode:    make([]problem.Var, n),
	}
	for _, m := range model.Markets {
		for t := 0; t < n; t++ {
			d.Purchase.Set(m, t, prob.NewVar(fmt.Sprintf("buy_%s_%d", m, t), 0, battery.HalfHourChargeLimit(), problem.Continuous))
			d.Sale.Set(m, t, prob.NewVar(fmt.Sprintf("sell_%s_%d", m, t), 0, battery.HalfHourDischargeLimit(), problem.Continuous))
		}
	}
	d.BlockPurchase = prob.NewVar("block_buy", 0, battery.DailyPurchaseLimit(), problem.Continuous)
	d.BlockSale = prob.NewVar("block_sell", 0, battery.DailySaleLimit(), problem.Continuous)
	// soc_0 is also pinned through its bounds so the carried value survives
	// solver round-off bit for bit
	d.SOC[0] = prob.NewVar("soc_0", in.InitialSOC, in.InitialSOC, problem.Continuous)
	for t := 1; t <= n; t++ {
		d.SOC[t] = prob.NewVar(fmt.Sprintf("soc_%d", t), 0, battery.CapacityMWh, problem.Continuous)
	}
	for t := 0; t < n; t++ {
		d.ChargeMode[t] = prob.NewVar(fmt.Sprintf("mode_%d", t), 0, 1, problem.Binary)
	}

	prob.Add("soc_initial", problem.Sum(d.SOC[0]), problem.EQ, in.InitialSOC)
	for t := 0; t < n; t++ {
		bought := d.bought(t, share)
		sold := d.sold(t, share)

		// bought <= limit * mode
		prob.Add(fmt.Sprintf("charge_limit_%d", t),
			bought.Add(d.ChargeMode[t], -battery.HalfHourChargeLimit()), problem.LE, 0)
		// sold <= limit * (1 - mode)
		prob.Add(fmt.Sprintf("discharge_limit_%d", t),
			sold.Add(d.ChargeMode[t], battery.HalfHourDischargeLimit()), problem.LE, battery.HalfHourDischargeLimit())
		// soc[t+1] - soc[t] - cf*bought + df*sold = 0
		balance := problem.Sum(d.SOC[t+1]).Add(d.SOC[t], -1).
			Plus(bought.Scale(-battery.ChargeFactor())).
			Plus(sold.Scale(battery.DischargeFactor()))
		prob.Add(fmt.Sprintf("soc_update_%d", t), balance, problem.EQ, 0)
	}

	obj := problem.Expr{}
	obj = obj.Add(d.BlockSale, in.Prices.Reference).Add(d.BlockPurchase, -in.Prices.Reference)
	for _, m := range model.Markets {
		for t := 0; t < n; t++ {
			price := in.Prices.Continuous.At(m, t)
			obj = obj.Add(d.Sale.At(m, t), price).Add(d.Purchase.At(m, t), -price)
		}
	}
	obj = obj.Add(d.SOC[n], in.TerminalPrice)
	prob.SetObjective(obj)
	return d, nil
}

// bought is the energy purchased in period t including the block share.
func (d *DayModel) bought(t int, share float64) problem.Expr {
	e := problem.Sum(d.Purchase.At(model.MarketA, t), d.Purchase.At(model.MarketB, t))
	return e.Add(d.BlockPurchase, share)
}

// sold is the energy sold in period t including the block share.
func (d *DayModel) sold(t int, share float64) problem.Expr {
	e := problem.Sum(d.Sale.At(model.MarketA, t), d.Sale.At(model.MarketB, t))
	return e.Add(d.BlockSale, share)
}

// Extract reads the solved values of every variable group.
func (d *DayModel) Extract(values []float64) model.Dispatch {
	n := d.Periods()
	out := model.Dispatch{
		Purchase:      model.NewGrid[float64](n),
		Sale:          model.NewGrid[float64](n),
		BlockPurchase: values[d.BlockPurchase],
		BlockSale:     values[d.BlockSale],
		SOC:           make([]float64, n+1),
		ChargeMode:    make([]bool, n),
	}
	for _, m := range model.Markets {
		for t := 0; t < n; t++ {
			out.Purchase.Set(m, t, values[d.Purchase.At(m, t)])
			out.Sale.Set(m, t, values[d.Sale.At(m, t)])
		}
	}
	for t := range d.SOC {
		out.SOC[t] = values[d.SOC[t]]
	}
	for t := range d.ChargeMode {
		out.ChargeMode[t] = values[d.ChargeMode[t]] > 0.5
	}
	return out
}
