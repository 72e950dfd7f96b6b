package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/bessarb/app"
	"github.com/kilianp07/bessarb/infra/logger"
)

var (
	runStart string
	runDays  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve consecutive days, carrying the state of charge forward",
	RunE:  runRolling,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVar(&runStart, "start", "", "first day (YYYY-MM-DD), overrides scheduler.start")
		c.Flags().IntVar(&runDays, "days", 0, "number of days, overrides scheduler.days")
	}
	rootCmd.AddCommand(runCmd)
}

func runRolling(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	if runStart != "" {
		cfg.Scheduler.Start = runStart
	}
	if runDays > 0 {
		cfg.Scheduler.Days = runDays
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	_, err = svc.Run(ctx)
	return err
}
