// Package solver runs linear and mixed-integer programs built with package
// problem. Backends are pluggable through a factory registry keyed by name.
package solver

import (
	"context"
	"math"

	"github.com/kilianp07/bessarb/core/factory"
	"github.com/kilianp07/bessarb/core/problem"
)

// Status is the outcome reported by a backend.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
	Unbounded
	Undefined
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Undefined:
		return "Undefined"
	default:
		return "Not Solved"
	}
}

// Solution is the result of a solve. Objective and Values are only meaningful
// when Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64 // indexed by problem.Var
	Message   string
}

// Value returns the solved value of v, or NaN when no assignment is available.
func (s Solution) Value(v problem.Var) float64 {
	if int(v) < 0 || int(v) >= len(s.Values) {
		return math.NaN()
	}
	return s.Values[v]
}

// Solver solves a problem. A returned error means the solver could not run or
// crashed (ErrSolverUnavailable when it is missing); infeasible or unbounded
// problems are reported through Status.
type Solver interface {
	Solve(ctx context.Context, p *problem.Problem) (Solution, error)
}

// DefaultBackend is used when no backend is configured. The gonum backend
// explores the charge-mode binaries by plain branch and bound and only suits
// short horizons; full 48 half-hour days need cbc.
const DefaultBackend = "cbc"

var registry = factory.NewRegistry[Solver]()

// Register adds a solver backend factory.
func Register(name string, f factory.Factory[Solver]) error {
	return registry.Register(name, f)
}

// New instantiates the configured backend.
func New(cfg factory.ModuleConfig) (Solver, error) {
	if cfg.Type == "" {
		cfg.Type = DefaultBackend
	}
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }

// snap clamps values to their bounds and rounds binaries so that results
// carried into the next solve never drift outside the feasible box.
func snap(p *problem.Problem, values []float64) {
	for i, v := range p.Variables() {
		x := values[i]
		if v.Category == problem.Binary {
			x = math.Round(x)
		}
		values[i] = math.Min(math.Max(x, v.Lower), v.Upper)
	}
}
