package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessarb/app"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/infra/logger"
	"github.com/kilianp07/bessarb/pkg/export"
)

var (
	dayDate string
	daySOC  float64
)

var solveDayCmd = &cobra.Command{
	Use:   "solve-day",
	Short: "Solve a single day and print its dispatch as CSV",
	RunE:  solveDay,
}

func init() {
	solveDayCmd.Flags().StringVar(&dayDate, "date", "", "day to solve (YYYY-MM-DD)")
	solveDayCmd.Flags().Float64Var(&daySOC, "soc", 0, "initial state of charge in MWh")
	_ = solveDayCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(solveDayCmd)
}

func solveDay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	date, err := time.ParseInLocation(time.DateOnly, dayDate, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: --date: %v", model.ErrConfig, err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	day, err := svc.SolveDate(ctx, date, daySOC)
	if err != nil {
		return err
	}
	logger.New("main").Infow("day solved", map[string]any{
		"date":           dayDate,
		"status":         day.Status,
		"profit":         day.Profit,
		"objective":      day.Objective,
		"terminal_price": day.TerminalPrice,
		"final_soc":      day.FinalSOC,
	})
	return export.WriteDispatchCSV(cmd.OutOrStdout(), []model.DailyResult{day})
}
