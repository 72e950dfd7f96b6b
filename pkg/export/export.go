// Package export writes the results of a rolling run as CSV tables and a
// JSON report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/bessarb/core/model"
)

// DispatchHeader lists the columns of the dispatch table.
var DispatchHeader = []string{
	"time", "soc",
	"purchase_a", "purchase_b", "purchase_block",
	"sale_a", "sale_b", "sale_block",
}

// SummaryHeader lists the columns of the per-day summary table.
var SummaryHeader = []string{"date", "status", "profit", "initial_soc", "final_soc", "terminal_price", "skipped"}

// DispatchWriter writes the half-hourly dispatch of consecutive days to a
// single table, one day at a time.
type DispatchWriter struct {
	cw *csv.Writer
}

// NewDispatchWriter writes the header to w.
func NewDispatchWriter(w io.Writer) (*DispatchWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(DispatchHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	return &DispatchWriter{cw: cw}, cw.Error()
}

// WriteDay appends the rows of day and flushes them.
func (d *DispatchWriter) WriteDay(day model.DailyResult) error {
	for _, r := range day.Rows {
		rec := make([]string, 0, len(DispatchHeader))
		rec = append(rec, r.Time.UTC().Format(time.RFC3339), formatFloat(r.SOC))
		for p := model.Product(0); p < model.NumProducts; p++ {
			rec = append(rec, formatFloat(r.Purchase[p]))
		}
		for p := model.Product(0); p < model.NumProducts; p++ {
			rec = append(rec, formatFloat(r.Sale[p]))
		}
		if err := d.cw.Write(rec); err != nil {
			return err
		}
	}
	d.cw.Flush()
	return d.cw.Error()
}

// WriteDispatchCSV writes the dispatch of all days to w with a header.
func WriteDispatchCSV(w io.Writer, days []model.DailyResult) error {
	dw, err := NewDispatchWriter(w)
	if err != nil {
		return err
	}
	for _, d := range days {
		if err := dw.WriteDay(d); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryCSV writes one row per day followed by a total row.
func WriteSummaryCSV(w io.Writer, days []model.DailyResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, d := range days {
		rec := []string{
			d.Date.Format(time.DateOnly),
			d.Status,
			formatFloat(d.Profit),
			formatFloat(d.InitialSOC),
			formatFloat(d.FinalSOC),
			formatFloat(d.TerminalPrice),
			strconv.FormatBool(d.Skipped),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"total", "", TotalProfit(days).String(), "", "", "", ""}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// TotalProfit sums the realised profit of days in decimal arithmetic.
func TotalProfit(days []model.DailyResult) decimal.Decimal {
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(decimal.NewFromFloat(d.Profit))
	}
	return total
}

// DaySummary is the per-day entry of a Report.
type DaySummary struct {
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	Skipped       bool    `json:"skipped,omitempty"`
	Profit        float64 `json:"profit"`
	Objective     float64 `json:"objective"`
	TerminalPrice float64 `json:"terminal_price"`
	InitialSOC    float64 `json:"initial_soc"`
	FinalSOC      float64 `json:"final_soc"`
}

// Report describes a whole run.
type Report struct {
	RunID       string                  `json:"run_id"`
	Start       string                  `json:"start"`
	Days        int                     `json:"days"`
	Battery     model.BatteryParameters `json:"battery"`
	TotalProfit decimal.Decimal         `json:"total_profit"`
	FinalSOC    float64                 `json:"final_soc"`
	Error       string                  `json:"error,omitempty"`
	Results     []DaySummary            `json:"results"`
}

// NewReport summarises days.
func NewReport(runID string, start time.Time, battery model.BatteryParameters, days []model.DailyResult, finalSOC float64) Report {
	r := Report{
		RunID:       runID,
		Start:       start.Format(time.DateOnly),
		Days:        len(days),
		Battery:     battery,
		TotalProfit: TotalProfit(days),
		FinalSOC:    finalSOC,
		Results:     make([]DaySummary, 0, len(days)),
	}
	for _, d := range days {
		r.Results = append(r.Results, DaySummary{
			Date:          d.Date.Format(time.DateOnly),
			Status:        d.Status,
			Skipped:       d.Skipped,
			Profit:        d.Profit,
			Objective:     d.Objective,
			TerminalPrice: d.TerminalPrice,
			InitialSOC:    d.InitialSOC,
			FinalSOC:      d.FinalSOC,
		})
	}
	return r
}

// WriteJSON writes the report to w as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
