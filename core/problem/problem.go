// Package problem holds a solver-neutral linear model: bounded variables, linear
// constraints and a linear objective. Solver backends translate it into their
// own representation.
package problem

import (
	"fmt"
	"math"
)

// Category is the domain of a variable.
type Category int

const (
	Continuous Category = iota
	Binary
)

func (c Category) String() string {
	if c == Binary {
		return "binary"
	}
	return "continuous"
}

// Var is a handle to a variable of a Problem.
type Var int

// Variable describes one decision variable.
type Variable struct {
	Name     string
	Lower    float64
	Upper    float64
	Category Category
}

// Sense is the relation of a constraint.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Constraint is Expr <Sense> RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Bound returns the right-hand side with the expression constant moved over.
func (c Constraint) Bound() float64 { return c.RHS - c.Expr.Constant }

// Problem is a linear or mixed-integer program.
type Problem struct {
	Name     string
	Maximize bool

	vars      []Variable
	cons      []Constraint
	objective Expr
}

// New returns an empty problem.
func New(name string, maximize bool) *Problem {
	return &Problem{Name: name, Maximize: maximize}
}

// NewVar adds a variable bounded to [lower, upper]. Binary variables are
// clamped to [0,1].
func (p *Problem) NewVar(name string, lower, upper float64, cat Category) Var {
	if cat == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.vars = append(p.vars, Variable{Name: name, Lower: lower, Upper: upper, Category: cat})
	return Var(len(p.vars) - 1)
}

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// Variable returns the definition of v.
func (p *Problem) Variable(v Var) Variable { return p.vars[v] }

// Variables returns a copy of all variable definitions.
func (p *Problem) Variables() []Variable {
	out := make([]Variable, len(p.vars))
	copy(out, p.vars)
	return out
}

// Add appends the constraint e <s> rhs.
func (p *Problem) Add(name string, e Expr, s Sense, rhs float64) {
	p.cons = append(p.cons, Constraint{Name: name, Expr: e, Sense: s, RHS: rhs})
}

// Constraints returns the constraint list. Callers must not modify it.
func (p *Problem) Constraints() []Constraint { return p.cons }

// SetObjective replaces the objective expression.
func (p *Problem) SetObjective(e Expr) { p.objective = e }

// Objective returns the objective expression.
func (p *Problem) Objective() Expr { return p.objective }

// Evaluate returns the objective value for the given assignment.
func (p *Problem) Evaluate(values []float64) float64 { return p.objective.Value(values) }

// Check verifies bounds, integrality and constraints of an assignment within tol.
func (p *Problem) Check(values []float64, tol float64) error {
	if len(values) != len(p.vars) {
		return fmt.Errorf("assignment has %d values for %d variables", len(values), len(p.vars))
	}
	for i, v := range p.vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("%s = %v outside [%v, %v]", v.Name, x, v.Lower, v.Upper)
		}
		if v.Category == Binary && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("%s = %v is not integral", v.Name, x)
		}
	}
	for _, c := range p.cons {
		lhs := c.Expr.Value(values)
		var ok bool
		switch c.Sense {
		case LE:
			ok = lhs <= c.RHS+tol
		case GE:
			ok = lhs >= c.RHS-tol
		default:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("constraint %s violated: %v %s %v", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}
