package model

import "time"

// Product indexes the columns of a dispatch row: the two continuous markets
// followed by the evenly spread block product.
type Product int

const (
	ProductA Product = iota
	ProductB
	ProductBlock
	NumProducts
)

// String returns the column label of the product.
func (p Product) String() string {
	switch p {
	case ProductA:
		return MarketA.String()
	case ProductB:
		return MarketB.String()
	case ProductBlock:
		return "block"
	default:
		return "unknown"
	}
}

// DispatchRow is one half-hour of a solved day. SOC is the state of charge at
// the start of the half-hour.
type DispatchRow struct {
	Time     time.Time            `json:"time"`
	SOC      float64              `json:"soc"`
	Purchase [NumProducts]float64 `json:"purchase"`
	Sale     [NumProducts]float64 `json:"sale"`
}

// DailyResult is the outcome of one day of the rolling run.
type DailyResult struct {
	Date          time.Time     `json:"date"`
	Status        string        `json:"status"`
	Objective     float64       `json:"objective"`
	Profit        float64       `json:"profit"`
	TerminalPrice float64       `json:"terminal_price"`
	InitialSOC    float64       `json:"initial_soc"`
	FinalSOC      float64       `json:"final_soc"`
	Skipped       bool          `json:"skipped,omitempty"`
	Rows          []DispatchRow `json:"rows"`
}

// Dispatch holds the solved quantities of one day.
type Dispatch struct {
	Purchase      Grid[float64]
	Sale          Grid[float64]
	BlockPurchase float64
	BlockSale     float64
	SOC           []float64 // L+1 boundary values
	ChargeMode    []bool
}

// FinalSOC returns the state of charge at the end of the day.
func (d Dispatch) FinalSOC() float64 {
	if len(d.SOC) == 0 {
		return 0
	}
	return d.SOC[len(d.SOC)-1]
}

// Rows converts the dispatch into one row per half-hour. The block product is
// spread evenly across the day.
func (d Dispatch) Rows(times []time.Time) []DispatchRow {
	n := len(times)
	if n == 0 {
		return nil
	}
	buyShare := d.BlockPurchase / float64(n)
	sellShare := d.BlockSale / float64(n)
	rows := make([]DispatchRow, n)
	for t := range times {
		r := DispatchRow{Time: times[t], SOC: d.SOC[t]}
		for _, m := range Markets {
			r.Purchase[m] = d.Purchase.At(m, t)
			r.Sale[m] = d.Sale.At(m, t)
		}
		r.Purchase[ProductBlock] = buyShare
		r.Sale[ProductBlock] = sellShare
		rows[t] = r
	}
	return rows
}
