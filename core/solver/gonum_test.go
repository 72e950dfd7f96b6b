package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/bessarb/core/problem"
)

func knapsack() (*problem.Problem, []problem.Var) {
	p := problem.New("knapsack", true)
	a := p.NewVar("a", 0, 1, problem.Binary)
	b := p.NewVar("b", 0, 1, problem.Binary)
	c := p.NewVar("c", 0, 1, problem.Binary)
	p.Add("w1", problem.Expr{}.Add(a, 2).Add(b, 3).Add(c, 1), problem.LE, 5)
	p.Add("w2", problem.Expr{}.Add(a, 4).Add(b, 1).Add(c, 2), problem.LE, 11)
	p.Add("w3", problem.Expr{}.Add(a, 3).Add(b, 4).Add(c, 2), problem.LE, 8)
	p.SetObjective(problem.Expr{}.Add(a, 5).Add(b, 4).Add(c, 3))
	return p, []problem.Var{a, b, c}
}

func TestGonum_BinaryKnapsack(t *testing.T) {
	p, v := knapsack()
	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status, sol.Message)
	assert.InDelta(t, 9.0, sol.Objective, 1e-9)
	assert.Equal(t, 1.0, sol.Value(v[0]))
	assert.Equal(t, 1.0, sol.Value(v[1]))
	assert.Equal(t, 0.0, sol.Value(v[2]))
	assert.NoError(t, p.Check(sol.Values, 1e-9))
}

func TestGonum_MixedInteger(t *testing.T) {
	p := problem.New("mixed", true)
	x := p.NewVar("x", 0, 10, problem.Continuous)
	z := p.NewVar("z", 0, 1, problem.Binary)
	p.Add("cap", problem.Sum(x).Add(z, 5), problem.LE, 7.5)
	p.SetObjective(problem.Sum(x).Add(z, 10))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 12.5, sol.Objective, 1e-9)
	assert.InDelta(t, 2.5, sol.Value(x), 1e-9)
	assert.Equal(t, 1.0, sol.Value(z))
}

func TestGonum_Minimize(t *testing.T) {
	p := problem.New("min", false)
	x := p.NewVar("x", 1, 4, problem.Continuous)
	y := p.NewVar("y", 0, 4, problem.Continuous)
	p.Add("demand", problem.Sum(x, y), problem.GE, 3)
	p.SetObjective(problem.Expr{Constant: 1}.Add(x, 2).Add(y, 1))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	// x at its lower bound, y covers the rest
	assert.InDelta(t, 1.0, sol.Value(x), 1e-9)
	assert.InDelta(t, 2.0, sol.Value(y), 1e-9)
	assert.InDelta(t, 5.0, sol.Objective, 1e-9)
}

func TestGonum_Infeasible(t *testing.T) {
	p := problem.New("infeasible", true)
	x := p.NewVar("x", 0, 1, problem.Continuous)
	p.Add("too_big", problem.Sum(x), problem.GE, 2)
	p.SetObjective(problem.Sum(x))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Infeasible, sol.Status)
	assert.True(t, math.IsNaN(sol.Objective))
}

func TestGonum_IntegerInfeasible(t *testing.T) {
	p := problem.New("integer_infeasible", true)
	z := p.NewVar("z", 0, 1, problem.Binary)
	p.Add("lo", problem.Sum(z), problem.GE, 0.3)
	p.Add("hi", problem.Sum(z), problem.LE, 0.7)
	p.SetObjective(problem.Sum(z))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Infeasible, sol.Status)
}

func TestGonum_Unbounded(t *testing.T) {
	p := problem.New("unbounded", true)
	x := p.NewVar("x", 0, math.Inf(1), problem.Continuous)
	y := p.NewVar("y", 0, 1, problem.Continuous)
	p.SetObjective(problem.Sum(x, y))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Unbounded, sol.Status)
}

func TestGonum_RejectsInfiniteLowerBound(t *testing.T) {
	p := problem.New("free", false)
	x := p.NewVar("x", math.Inf(-1), 5, problem.Continuous)
	p.Add("floor", problem.Sum(x), problem.GE, -3)
	p.SetObjective(problem.Sum(x))

	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, NotSolved, sol.Status)
	assert.Contains(t, sol.Message, "x needs a finite lower bound")
	assert.True(t, math.IsNaN(sol.Objective))
}

func TestGonum_NodeLimit(t *testing.T) {
	p, _ := knapsack()
	sol, err := NewGonumSolver(GonumConfig{MaxNodes: 1}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.NotEqual(t, Optimal, sol.Status)
	assert.Contains(t, []Status{Undefined, NotSolved}, sol.Status)
}

func TestGonum_SimplexFailure(t *testing.T) {
	old := lpSimplex
	lpSimplex = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return math.NaN(), nil, lp.ErrSingular
	}
	defer func() { lpSimplex = old }()

	p, _ := knapsack()
	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Undefined, sol.Status)
	assert.Contains(t, sol.Message, "singular")
}

func TestGonum_ContextCancelled(t *testing.T) {
	p, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := NewGonumSolver(GonumConfig{}, nil).Solve(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, NotSolved, sol.Status)
}

func TestNew_Backends(t *testing.T) {
	s, err := New(factoryConf("", nil))
	require.NoError(t, err)
	assert.IsType(t, &CBCSolver{}, s)

	s, err = New(factoryConf("gonum", map[string]any{"max_nodes": 100}))
	require.NoError(t, err)
	assert.IsType(t, &GonumSolver{}, s)

	s, err = New(factoryConf("cbc", map[string]any{"path": "cbc", "threads": 2}))
	require.NoError(t, err)
	assert.IsType(t, &CBCSolver{}, s)

	_, err = New(factoryConf("glpk", nil))
	assert.Error(t, err)
	assert.Equal(t, []string{"cbc", "gonum"}, Backends())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Optimal", Optimal.String())
	assert.Equal(t, "Not Solved", NotSolved.String())
	assert.Equal(t, "Infeasible", Infeasible.String())
	assert.Equal(t, "Unbounded", Unbounded.String())
	assert.Equal(t, "Undefined", Undefined.String())
}
