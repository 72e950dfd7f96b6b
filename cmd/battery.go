package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var batteryCmd = &cobra.Command{
	Use:   "battery",
	Short: "Print the resolved battery parameters and derived limits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := cfg.BatteryParameters()
		if err != nil {
			return err
		}
		doc := struct {
			Battery any                `yaml:"battery"`
			Derived map[string]float64 `yaml:"derived"`
		}{
			Battery: b,
			Derived: map[string]float64{
				"half_hour_charge_limit_mwh":    b.HalfHourChargeLimit(),
				"half_hour_discharge_limit_mwh": b.HalfHourDischargeLimit(),
				"daily_purchase_limit_mwh":      b.DailyPurchaseLimit(),
				"daily_sale_limit_mwh":          b.DailySaleLimit(),
				"charge_factor":                 b.ChargeFactor(),
				"discharge_factor":              b.DischargeFactor(),
			},
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(batteryCmd)
}
