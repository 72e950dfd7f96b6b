package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/bessarb/core/factory"
	"github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/scheduler"
	"github.com/kilianp07/bessarb/core/solver"
	"github.com/kilianp07/bessarb/infra/monitoring"
	"github.com/kilianp07/bessarb/infra/pricedata"
)

// EnvPrefix prefixes environment overrides; "__" separates nested keys,
// e.g. BESS_SOLVER__BACKEND=cbc.
const EnvPrefix = "BESS_"

type Config struct {
	Battery     *model.BatteryParameters `json:"battery"`
	BatteryFile string                   `json:"battery_file"`
	Data        pricedata.Config         `json:"data"`
	Scheduler   scheduler.Config         `json:"scheduler"`
	Solver      SolverConfig             `json:"solver"`
	Output      OutputConfig             `json:"output"`
	Metrics     metrics.Config           `json:"metrics"`
	Logging     LoggingConfig            `json:"logging"`
	Sentry      monitoring.Config        `json:"sentry"`
}

// SolverConfig selects the optimisation backend.
type SolverConfig struct {
	Backend string         `json:"backend"`
	Options map[string]any `json:"options"`
}

// Module returns the factory configuration of the backend.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: c.Options}
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = solver.DefaultBackend
	}
}

// OutputConfig locates the result files. An empty path disables the file.
type OutputConfig struct {
	DispatchPath string `json:"dispatch_path"`
	SummaryPath  string `json:"summary_path"`
	ReportPath   string `json:"report_path"`
	// ChartPath, when set, receives an HTML chart of the run.
	ChartPath string `json:"chart_path"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.DispatchPath == "" && c.SummaryPath == "" && c.ReportPath == "" {
		c.DispatchPath = filepath.Join("results", "dispatch.csv")
		c.SummaryPath = filepath.Join("results", "summary.csv")
		c.ReportPath = filepath.Join("results", "report.json")
	}
}

// LoadEnvFiles loads the given .env files, or ".env" when none is given.
// Missing default files are ignored; variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Load reads the configuration file at path (YAML or JSON), applies BESS_
// environment overrides, defaults and validation. An empty path uses the
// environment and defaults only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("%w: unsupported config format: %s", model.ErrConfig, ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Solver.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
}

var validate = validator.New()

// Validate checks field constraints, then the run parameters against the battery.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", model.ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	if c.Battery != nil && c.BatteryFile != "" {
		return fmt.Errorf("%w: battery and battery_file are mutually exclusive", model.ErrConfig)
	}
	if !contains(solver.Backends(), c.Solver.Backend) {
		return fmt.Errorf("%w: unknown solver backend %q (known: %s)", model.ErrConfig, c.Solver.Backend, strings.Join(solver.Backends(), ", "))
	}
	battery, err := c.BatteryParameters()
	if err != nil {
		return err
	}
	return c.Scheduler.Validate(battery)
}

// BatteryParameters resolves the battery: an inline section, a preset file,
// or the default reference battery.
func (c *Config) BatteryParameters() (model.BatteryParameters, error) {
	switch {
	case c.BatteryFile != "":
		return model.LoadBatteryFile(c.BatteryFile)
	case c.Battery != nil:
		return model.NewBatteryParameters(*c.Battery)
	default:
		return model.DefaultBatteryParameters(), nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
