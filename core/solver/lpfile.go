package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/kilianp07/bessarb/core/problem"
)

const termsPerLine = 6

// WriteLP writes p in CPLEX LP format as read by CBC and most MILP solvers.
func WriteLP(w io.Writer, p *problem.Problem) error {
	bw := bufio.NewWriter(w)
	vars := p.Variables()

	fmt.Fprintf(bw, "\\* %s *\\\n", p.Name)
	if p.Maximize {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}
	writeExpr(bw, "obj", p.Objective(), vars)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for _, c := range p.Constraints() {
		writeExpr(bw, c.Name, c.Expr, vars)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNum(c.Bound()))
	}

	fmt.Fprintln(bw, "Bounds")
	for _, v := range vars {
		if v.Category == problem.Binary {
			continue
		}
		if v.Lower == v.Upper {
			fmt.Fprintf(bw, " %s = %s\n", v.Name, formatNum(v.Lower))
			continue
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(v.Lower), v.Name, formatNum(v.Upper))
	}

	var bins []string
	for _, v := range vars {
		if v.Category == problem.Binary {
			bins = append(bins, v.Name)
		}
	}
	if len(bins) > 0 {
		fmt.Fprintln(bw, "Binaries")
		for _, n := range bins {
			fmt.Fprintf(bw, " %s\n", n)
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// writeExpr writes "name: +a x +b y" wrapping long expressions. Terms are
// merged per variable and emitted in variable order.
func writeExpr(w io.Writer, name string, e problem.Expr, vars []problem.Variable) {
	coefs := e.Coefficients()
	keys := make([]int, 0, len(coefs))
	for v, a := range coefs {
		if a != 0 {
			keys = append(keys, int(v))
		}
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "%s:", name)
	if len(keys) == 0 && len(vars) > 0 {
		fmt.Fprintf(w, " 0 %s", vars[0].Name)
		return
	}
	for i, k := range keys {
		if i > 0 && i%termsPerLine == 0 {
			fmt.Fprint(w, "\n ")
		}
		a := coefs[problem.Var(k)]
		op := "+"
		if a < 0 {
			op = "-"
		}
		fmt.Fprintf(w, " %s %s %s", op, formatNum(math.Abs(a)), vars[k].Name)
	}
}

func formatNum(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
