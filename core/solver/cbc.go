package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/bessarb/core/factory"
	"github.com/kilianp07/bessarb/core/logger"
	"github.com/kilianp07/bessarb/core/model"
	"github.com/kilianp07/bessarb/core/problem"
)

// CBCConfig configures the COIN-OR CBC command line backend.
type CBCConfig struct {
	Path      string        `json:"path"`       // binary name or path, default "cbc"
	TimeLimit time.Duration `json:"time_limit"` // passed as "sec", zero means none
	Threads   int           `json:"threads"`
	KeepFiles bool          `json:"keep_files"` // keep the LP and solution files for debugging
}

// CBCSolver writes the problem to an LP file and runs cbc non-interactively.
type CBCSolver struct {
	cfg CBCConfig
	log logger.Logger

	lookPath func(string) (string, error)
}

// NewCBCSolver returns a CBC backend.
func NewCBCSolver(cfg CBCConfig, log logger.Logger) *CBCSolver {
	if cfg.Path == "" {
		cfg.Path = "cbc"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CBCSolver{cfg: cfg, log: log, lookPath: exec.LookPath}
}

func init() {
	_ = Register("cbc", func(conf map[string]any) (Solver, error) {
		var c CBCConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCBCSolver(c, nil), nil
	})
}

// Solve blocks until cbc exits. The objective is recomputed from the parsed
// assignment so it does not depend on how cbc reports the sense.
func (s *CBCSolver) Solve(ctx context.Context, p *problem.Problem) (Solution, error) {
	bin, err := s.lookPath(s.cfg.Path)
	if err != nil {
		return Solution{Status: NotSolved, Objective: math.NaN()}, fmt.Errorf("%w: %v", model.ErrSolverUnavailable, err)
	}

	dir, err := os.MkdirTemp("", "bessarb-cbc")
	if err != nil {
		return Solution{Status: NotSolved, Objective: math.NaN()}, err
	}
	if s.cfg.KeepFiles {
		s.log.Infof("cbc work files kept in %s", dir)
	} else {
		defer func() { _ = os.RemoveAll(dir) }()
	}

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	f, err := os.Create(lpPath)
	if err != nil {
		return Solution{Status: NotSolved, Objective: math.NaN()}, err
	}
	if err := WriteLP(f, p); err != nil {
		_ = f.Close()
		return Solution{Status: NotSolved, Objective: math.NaN()}, fmt.Errorf("write lp: %w", err)
	}
	if err := f.Close(); err != nil {
		return Solution{Status: NotSolved, Objective: math.NaN()}, err
	}

	cmd := exec.CommandContext(ctx, bin, s.args(lpPath, solPath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return Solution{Status: NotSolved, Objective: math.NaN()}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Solution{Status: NotSolved, Objective: math.NaN()},
				fmt.Errorf("cbc exited: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return Solution{Status: NotSolved, Objective: math.NaN()}, fmt.Errorf("%w: start cbc: %v", model.ErrSolverUnavailable, err)
	}

	sf, err := os.Open(solPath)
	if errors.Is(err, os.ErrNotExist) {
		return Solution{Status: NotSolved, Objective: math.NaN(), Message: "cbc wrote no solution file"}, nil
	}
	if err != nil {
		return Solution{Status: NotSolved, Objective: math.NaN()}, err
	}
	defer func() { _ = sf.Close() }()
	return ParseCBCSolution(sf, p)
}

func (s *CBCSolver) args(lpPath, solPath string) []string {
	args := []string{lpPath}
	if s.cfg.TimeLimit > 0 {
		args = append(args, "sec", strconv.FormatFloat(s.cfg.TimeLimit.Seconds(), 'f', -1, 64))
	}
	if s.cfg.Threads > 0 {
		args = append(args, "threads", strconv.Itoa(s.cfg.Threads))
	}
	return append(args, "printingOptions", "all", "solve", "solu", solPath)
}

// ParseCBCSolution reads a cbc solution file. The first word of the first line
// carries the status; each following line is "index name value reducedCost",
// optionally prefixed by "**" for infeasible rows.
func ParseCBCSolution(r io.Reader, p *problem.Problem) (Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Solution{}, err
		}
		return Solution{Status: NotSolved, Objective: math.NaN(), Message: "empty solution file"}, nil
	}
	header := strings.TrimSpace(sc.Text())
	status := cbcStatus(header)

	index := make(map[string]int, p.NumVars())
	for i, v := range p.Variables() {
		index[v.Name] = i
	}
	values := make([]float64, p.NumVars())
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		i, ok := index[fields[1]]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("parse value of %s: %w", fields[1], err)
		}
		values[i] = v
	}
	if err := sc.Err(); err != nil {
		return Solution{}, err
	}
	if status != Optimal {
		return Solution{Status: status, Objective: math.NaN(), Values: values, Message: header}, nil
	}
	snap(p, values)
	return Solution{Status: Optimal, Objective: p.Evaluate(values), Values: values, Message: header}, nil
}

func cbcStatus(header string) Status {
	word, _, _ := strings.Cut(header, " ")
	switch word {
	case "Optimal":
		return Optimal
	case "Infeasible", "Integer":
		return Infeasible
	case "Unbounded":
		return Unbounded
	case "Stopped":
		return NotSolved
	default:
		return Undefined
	}
}
