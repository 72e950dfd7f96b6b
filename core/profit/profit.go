// Package profit computes realised trading cash flow from solved dispatch.
package profit

import "github.com/kilianp07/bessarb/core/model"

// Realized returns the cash earned over the day:
// Σ price[m][t]·(sale − purchase) + reference·(blockSale − blockPurchase).
// The terminal value of stored energy is not cash and is excluded.
func Realized(prices model.DayPrices, d model.Dispatch) float64 {
	total := prices.Reference * (d.BlockSale - d.BlockPurchase)
	for _, m := range model.Markets {
		for t := 0; t < prices.Len(); t++ {
			total += prices.Continuous.At(m, t) * (d.Sale.At(m, t) - d.Purchase.At(m, t))
		}
	}
	return total
}

// WithTerminal adds the terminal valuation of the final state of charge to the
// realised profit. For an optimal solve it matches the objective value.
func WithTerminal(prices model.DayPrices, d model.Dispatch, terminalPrice float64) float64 {
	return Realized(prices, d) + terminalPrice*d.FinalSOC()
}
