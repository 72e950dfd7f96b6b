package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/bessarb/core/factory"
	"github.com/kilianp07/bessarb/core/logger"
	"github.com/kilianp07/bessarb/core/problem"
)

// GonumConfig tunes the built-in branch-and-bound solver.
type GonumConfig struct {
	Tolerance            float64 `json:"tolerance"`
	IntegralityTolerance float64 `json:"integrality_tolerance"`
	MaxNodes             int     `json:"max_nodes"`
}

// SetDefaults applies sane defaults.
func (c *GonumConfig) SetDefaults() {
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-9
	}
	if c.IntegralityTolerance <= 0 {
		c.IntegralityTolerance = 1e-6
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = 20000
	}
}

// GonumSolver solves mixed-integer programs by depth-first branch and bound,
// each node being an LP relaxation solved with the gonum simplex.
type GonumSolver struct {
	cfg GonumConfig
	log logger.Logger
}

// NewGonumSolver returns a solver using cfg with defaults applied.
func NewGonumSolver(cfg GonumConfig, log logger.Logger) *GonumSolver {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &GonumSolver{cfg: cfg, log: log}
}

func init() {
	_ = Register("gonum", func(conf map[string]any) (Solver, error) {
		var c GonumConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewGonumSolver(c, nil), nil
	})
}

// lpSimplex points to the simplex routine. It can be overridden in tests to
// simulate numerical failures.
var lpSimplex = lp.Simplex

type relaxation struct {
	status Status
	obj    float64 // in the problem's own sense
	x      []float64
	msg    string
}

type node struct {
	lo, hi []float64
	bound  float64 // parent relaxation score
}

// Solve runs branch and bound. The context is only checked between nodes.
func (s *GonumSolver) Solve(ctx context.Context, p *problem.Problem) (Solution, error) {
	vars := p.Variables()
	lo := make([]float64, len(vars))
	hi := make([]float64, len(vars))
	for i, v := range vars {
		// relax shifts every column by its lower bound
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) || math.IsNaN(v.Upper) {
			return Solution{Status: NotSolved, Objective: math.NaN(),
				Message: fmt.Sprintf("%s needs a finite lower bound", v.Name)}, nil
		}
		lo[i], hi[i] = v.Lower, v.Upper
	}
	sign := -1.0
	if p.Maximize {
		sign = 1
	}

	root := s.relax(p, lo, hi)
	switch root.status {
	case Optimal:
	case Infeasible, Unbounded:
		return Solution{Status: root.status, Objective: math.NaN(), Message: root.msg}, nil
	default:
		return Solution{Status: Undefined, Objective: math.NaN(), Message: root.msg}, nil
	}

	best := math.Inf(-1)
	var incumbent []float64
	accept := func(r relaxation) {
		if score := sign * r.obj; score > best {
			best = score
			incumbent = r.x
		}
	}
	if s.fractional(vars, root.x) < 0 {
		accept(root)
	} else if heur := s.roundAndFix(p, vars, lo, hi, root.x); heur.status == Optimal {
		accept(heur)
	}

	stack := []node{{lo: lo, hi: hi, bound: sign * root.obj}}
	nodes, incomplete := 0, false
	first := true
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{Status: NotSolved, Objective: math.NaN()}, err
		}
		if nodes >= s.cfg.MaxNodes {
			break
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if incumbent != nil && n.bound <= best+s.gap(best) {
			continue
		}
		r := root
		if !first {
			r = s.relax(p, n.lo, n.hi)
		}
		first = false
		nodes++
		switch r.status {
		case Optimal:
		case Infeasible:
			continue
		case Unbounded:
			return Solution{Status: Unbounded, Objective: math.NaN(), Message: r.msg}, nil
		default:
			incomplete = true
			s.log.Warnf("node relaxation failed: %s", r.msg)
			continue
		}
		score := sign * r.obj
		if incumbent != nil && score <= best+s.gap(best) {
			continue
		}
		j := s.fractional(vars, r.x)
		if j < 0 {
			accept(r)
			continue
		}
		down := node{lo: n.lo, hi: cloneWith(n.hi, j, 0), bound: score}
		up := node{lo: cloneWith(n.lo, j, 1), hi: n.hi, bound: score}
		// explore the side closest to the relaxed value first
		if r.x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}
	s.log.Debugf("branch and bound explored %d nodes", nodes)

	exhausted := len(stack) == 0 && !incomplete
	switch {
	case incumbent == nil && exhausted:
		return Solution{Status: Infeasible, Objective: math.NaN(), Message: "no integer feasible point"}, nil
	case incumbent == nil:
		return Solution{Status: NotSolved, Objective: math.NaN(), Message: fmt.Sprintf("node limit %d reached", s.cfg.MaxNodes)}, nil
	}
	snap(p, incumbent)
	sol := Solution{Status: Optimal, Objective: p.Evaluate(incumbent), Values: incumbent}
	if !exhausted {
		sol.Status = Undefined
		sol.Message = fmt.Sprintf("search stopped after %d nodes without proof of optimality", nodes)
	}
	return sol, nil
}

func (s *GonumSolver) gap(best float64) float64 {
	return s.cfg.IntegralityTolerance * (1 + math.Abs(best))
}

// fractional returns the binary variable farthest from integrality, or -1.
func (s *GonumSolver) fractional(vars []problem.Variable, x []float64) int {
	idx, worst := -1, s.cfg.IntegralityTolerance
	for i, v := range vars {
		if v.Category != problem.Binary {
			continue
		}
		if f := math.Abs(x[i] - math.Round(x[i])); f > worst {
			idx, worst = i, f
		}
	}
	return idx
}

// roundAndFix fixes every binary to its rounded relaxed value and solves the
// remaining LP. A feasible result seeds the incumbent.
func (s *GonumSolver) roundAndFix(p *problem.Problem, vars []problem.Variable, lo, hi, x []float64) relaxation {
	flo := append([]float64(nil), lo...)
	fhi := append([]float64(nil), hi...)
	for i, v := range vars {
		if v.Category == problem.Binary {
			r := math.Round(x[i])
			flo[i], fhi[i] = r, r
		}
	}
	return s.relax(p, flo, fhi)
}

func cloneWith(src []float64, i int, v float64) []float64 {
	out := append([]float64(nil), src...)
	out[i] = v
	return out
}

// relax solves the LP relaxation of p with variable bounds [lo, hi].
//
// Variables are shifted to x' = x - lo so that the standard form
// minimize cᵀx' s.t. Ax' = b, x' >= 0 accepted by lp.Simplex applies.
// Inequalities and finite upper bounds get one slack column each.
func (s *GonumSolver) relax(p *problem.Problem, lo, hi []float64) relaxation {
	n := len(lo)
	for j := 0; j < n; j++ {
		if hi[j] < lo[j]-s.cfg.Tolerance {
			return relaxation{status: Infeasible, msg: "empty variable domain"}
		}
	}

	type row struct {
		coef  map[int]float64
		slack float64 // +1 for <=, -1 for >=, 0 for =
		b     float64
	}
	var rows []row
	for _, c := range p.Constraints() {
		r := row{coef: make(map[int]float64), b: c.Bound()}
		for v, a := range c.Expr.Coefficients() {
			if a == 0 {
				continue
			}
			r.coef[int(v)] = a
			r.b -= a * lo[v]
		}
		switch c.Sense {
		case problem.LE:
			r.slack = 1
		case problem.GE:
			r.slack = -1
		}
		if len(r.coef) == 0 && r.slack == 0 {
			if math.Abs(r.b) > s.cfg.Tolerance {
				return relaxation{status: Infeasible, msg: fmt.Sprintf("constraint %s has no terms", c.Name)}
			}
			continue
		}
		rows = append(rows, r)
	}
	for j := 0; j < n; j++ {
		if !math.IsInf(hi[j], 1) {
			rows = append(rows, row{coef: map[int]float64{j: 1}, slack: 1, b: math.Max(hi[j]-lo[j], 0)})
		}
	}

	obj := p.Objective().Coefficients()
	sign := 1.0
	if p.Maximize {
		sign = -1
	}

	// structural columns that appear in no row are resolved directly
	used := make([]bool, n)
	for _, r := range rows {
		for j := range r.coef {
			used[j] = true
		}
	}
	col := make([]int, n)
	cols := 0
	for j := 0; j < n; j++ {
		col[j] = -1
		if used[j] {
			col[j] = cols
			cols++
			continue
		}
		if sign*obj[problem.Var(j)] < 0 {
			return relaxation{status: Unbounded, msg: fmt.Sprintf("%s is unbounded", p.Variable(problem.Var(j)).Name)}
		}
	}
	structural := cols
	for _, r := range rows {
		if r.slack != 0 {
			cols++
		}
	}

	x := append([]float64(nil), lo...)
	if len(rows) == 0 {
		return relaxation{status: Optimal, obj: p.Evaluate(x), x: x}
	}
	if len(rows) > cols {
		return relaxation{status: Undefined, msg: fmt.Sprintf("%d rows for %d columns", len(rows), cols)}
	}

	A := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	c := make([]float64, cols)
	for j := 0; j < n; j++ {
		if col[j] >= 0 {
			c[col[j]] = sign * obj[problem.Var(j)]
		}
	}
	slack := structural
	for i, r := range rows {
		rs := 1.0
		if r.b < 0 {
			rs = -1
		}
		for j, a := range r.coef {
			A.Set(i, col[j], rs*a)
		}
		if r.slack != 0 {
			A.Set(i, slack, rs*r.slack)
			slack++
		}
		b[i] = rs * r.b
	}

	_, sol, err := lpSimplex(c, A, b, s.cfg.Tolerance, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return relaxation{status: Infeasible, msg: err.Error()}
	case errors.Is(err, lp.ErrUnbounded):
		return relaxation{status: Unbounded, msg: err.Error()}
	case err != nil:
		return relaxation{status: Undefined, msg: err.Error()}
	}
	for j := 0; j < n; j++ {
		if col[j] >= 0 {
			x[j] = lo[j] + sol[col[j]]
		}
	}
	return relaxation{status: Optimal, obj: p.Evaluate(x), x: x}
}
