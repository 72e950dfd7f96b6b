package export

import (
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/bessarb/core/model"
)

// WriteChartHTML renders an HTML page with the state of charge and net
// traded energy per half-hour and the realised profit per day.
func WriteChartHTML(w io.Writer, days []model.DailyResult) error {
	var (
		slots  []string
		soc    []opts.LineData
		net    []opts.LineData
		dates  []string
		profit []opts.BarData
	)
	for _, d := range days {
		dates = append(dates, d.Date.Format(time.DateOnly))
		profit = append(profit, opts.BarData{Value: round(d.Profit)})
		for _, r := range d.Rows {
			slots = append(slots, r.Time.UTC().Format("2006-01-02 15:04"))
			soc = append(soc, opts.LineData{Value: round(r.SOC)})
			var sold float64
			for p := range r.Sale {
				sold += r.Sale[p] - r.Purchase[p]
			}
			net = append(net, opts.LineData{Value: round(sold)})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Dispatch"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Half-hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MWh"}),
	)
	line.SetXAxis(slots).
		AddSeries("State of charge", soc).
		AddSeries("Net sale", net)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Daily profit"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Profit"}),
	)
	bar.SetXAxis(dates).AddSeries("Profit", profit)

	page := components.NewPage()
	page.AddCharts(line, bar)
	return page.Render(w)
}

func round(v float64) float64 { return math.Round(v*1e6) / 1e6 }
