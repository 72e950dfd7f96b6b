package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/scheduler"
	"github.com/kilianp07/bessarb/core/solver"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `battery:
  capacity_mwh: 10
  charge_rate_mw: 5
  discharge_rate_mw: 4
  charge_loss: 0.1
  discharge_loss: 0.05
data:
  market_a: a.csv
  market_b: b.csv
  reference: ref.csv
scheduler:
  start: "2023-01-01"
  days: 7
  initial_soc: 2.5
  terminal_valuation: fixed
  terminal_price: 45
  on_failure: skip
solver:
  backend: cbc
  options:
    threads: 2
    time_limit: 30s
metrics:
  sinks:
    - type: nop
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	battery, err := cfg.BatteryParameters()
	require.NoError(t, err)
	assert.Equal(t, 10.0, battery.CapacityMWh)
	assert.Equal(t, 4.0, battery.DischargeRateMW)
	assert.Equal(t, "a.csv", cfg.Data.MarketA)
	assert.Equal(t, 7, cfg.Scheduler.Days)
	assert.Equal(t, scheduler.DefaultPeriodsPerDay, cfg.Scheduler.PeriodsPerDay)
	assert.Equal(t, 2.5, cfg.Scheduler.InitialSOC)
	assert.Equal(t, scheduler.ValuationFixed, cfg.Scheduler.TerminalValuation)
	assert.Equal(t, scheduler.OnFailureSkip, cfg.Scheduler.OnFailure)
	assert.Equal(t, "cbc", cfg.Solver.Module().Type)
	assert.EqualValues(t, 2, cfg.Solver.Options["threads"])
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("results", "summary.csv"), cfg.Output.SummaryPath)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	battery, err := cfg.BatteryParameters()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultBatteryParameters(), battery)
	assert.Equal(t, "cbc", cfg.Solver.Backend)
	assert.Equal(t, solver.DefaultBackend, cfg.Solver.Backend)
	assert.Equal(t, scheduler.ValuationSameDayAverage, cfg.Scheduler.TerminalValuation)
	assert.Equal(t, scheduler.OnFailureAbort, cfg.Scheduler.OnFailure)
	assert.Equal(t, 1, cfg.Scheduler.Days)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"scheduler": {"start": "2023-01-01", "days": 2}}`)
	t.Setenv("BESS_SOLVER__BACKEND", "gonum")
	t.Setenv("BESS_SCHEDULER__DAYS", "5")
	t.Setenv("BESS_DATA__MARKET_A", "/data/n2ex.csv")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gonum", cfg.Solver.Backend)
	assert.Equal(t, 5, cfg.Scheduler.Days)
	assert.Equal(t, "/data/n2ex.csv", cfg.Data.MarketA)
}

func TestLoad_BatteryFile(t *testing.T) {
	bf := writeFile(t, "battery.yaml", "capacity_mwh: 2\ncharge_rate_mw: 1\ndischarge_rate_mw: 1\n")
	path := writeFile(t, "config.yaml", "battery_file: "+bf+"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	battery, err := cfg.BatteryParameters()
	require.NoError(t, err)
	assert.Equal(t, 2.0, battery.CapacityMWh)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad valuation", "scheduler:\n  terminal_valuation: oracle\n"},
		{"bad failure policy", "scheduler:\n  on_failure: retry\n"},
		{"bad start", "scheduler:\n  start: \"01/03/2018\"\n"},
		{"negative days", "scheduler:\n  days: -1\n"},
		{"initial soc above capacity", "scheduler:\n  initial_soc: 51\n"},
		{"loss of one", "battery:\n  capacity_mwh: 1\n  charge_loss: 1\n"},
		{"unknown backend", "solver:\n  backend: glpk\n"},
		{"bad level", "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.data))
			assert.ErrorIs(t, err, model.ErrConfig)
		})
	}

	_, err := Load(writeFile(t, "config.toml", ""))
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestLoadEnvFiles(t *testing.T) {
	path := writeFile(t, "test.env", "BESS_TEST_ENV_FILE=loaded\n")
	t.Setenv("BESS_TEST_ENV_FILE", "")
	require.NoError(t, os.Unsetenv("BESS_TEST_ENV_FILE"))
	require.NoError(t, LoadEnvFiles(path))
	assert.Equal(t, "loaded", os.Getenv("BESS_TEST_ENV_FILE"))

	assert.Error(t, LoadEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
}
