package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultTolerance = 1e-10
	defaultMaxNodes  = 20000

	integralityTolerance = 1e-6
	feasibilityTolerance = 1e-7
)

// Solver solves linear and 0/1 integer programs.
type Solver interface {
	Solve(ctx context.Context, p *Program) (*Solution, error)
}

// Option configures a Simplex solver.
type Option func(*Simplex)

// WithTolerance sets the tolerance passed to gonum's simplex routine.
func WithTolerance(tol float64) Option {
	return func(s *Simplex) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithMaxNodes bounds the number of relaxations branch-and-bound may solve.
// Zero disables the limit.
func WithMaxNodes(n int) Option {
	return func(s *Simplex) {
		if n >= 0 {
			s.maxNodes = n
		}
	}
}

// Simplex solves programs with gonum's simplex implementation. Binary
// variables are handled by depth-first branch-and-bound on the most
// fractional variable. A Simplex holds no per-solve state and may be shared.
type Simplex struct {
	tol      float64
	maxNodes int
}

// NewSimplex creates a Simplex solver.
func NewSimplex(opts ...Option) *Simplex {
	s := &Simplex{
		tol:      defaultTolerance,
		maxNodes: defaultMaxNodes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve returns an optimal solution of p. The context is checked before every
// relaxation, so long searches stop once it is cancelled.
func (s *Simplex) Solve(ctx context.Context, p *Program) (*Solution, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil program", ErrMalformed)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	search := &branchAndBound{
		ctx:    ctx,
		solver: s,
		prog:   p,
		best:   math.Inf(1),
	}
	if err := search.run(); err != nil {
		return nil, err
	}
	if search.incumbent == nil {
		return nil, ErrInfeasible
	}

	return &Solution{
		Objective: p.Evaluate(search.incumbent),
		Values:    search.incumbent,
		Nodes:     search.nodes,
	}, nil
}

type branchAndBound struct {
	ctx    context.Context
	solver *Simplex
	prog   *Program

	nodes     int
	best      float64
	incumbent []float64
}

func (b *branchAndBound) run() error {
	stack := []map[int]float64{{}}
	for len(stack) > 0 {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		fixed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b.nodes++
		if b.solver.maxNodes > 0 && b.nodes > b.solver.maxNodes {
			return ErrNodeLimit
		}

		values, bound, err := b.solver.relax(b.prog, fixed)
		if errors.Is(err, ErrInfeasible) {
			continue
		}
		if err != nil {
			return err
		}
		if b.incumbent != nil && bound >= b.best-pruneMargin(b.best) {
			continue
		}

		branch := mostFractional(b.prog, fixed, values)
		if branch < 0 {
			for j := range values {
				if b.prog.variables[j].Domain == Binary {
					values[j] = math.Round(values[j])
				}
			}
			b.incumbent = values
			b.best = minimizationValue(b.prog, values)
			continue
		}

		down := cloneFixings(fixed)
		down[branch] = 0
		up := cloneFixings(fixed)
		up[branch] = 1
		// The child nearer the relaxed value is popped first.
		if values[branch] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}
	return nil
}

type row struct {
	coefs    map[int]float64
	relation Relation
	rhs      float64
}

// relax solves the LP relaxation with the given variables fixed. It returns
// values for every program variable and the objective in minimisation form.
func (s *Simplex) relax(p *Program, fixed map[int]float64) ([]float64, float64, error) {
	n := len(p.variables)
	colOf := make([]int, n)
	var cols []int
	for j := 0; j < n; j++ {
		if _, ok := fixed[j]; ok {
			colOf[j] = -1
			continue
		}
		colOf[j] = len(cols)
		cols = append(cols, j)
	}

	rows := make([]row, 0, len(p.constraints)+len(cols))
	for _, c := range p.constraints {
		r := row{coefs: make(map[int]float64, len(c.Terms)), relation: c.Relation, rhs: c.RHS}
		for _, t := range c.Terms {
			if v, ok := fixed[t.Var]; ok {
				r.rhs -= t.Coef * v
				continue
			}
			r.coefs[colOf[t.Var]] += t.Coef
		}
		for k, coef := range r.coefs {
			if coef == 0 {
				delete(r.coefs, k)
			}
		}
		if len(r.coefs) == 0 {
			if !satisfiedAtZero(r.relation, r.rhs) {
				return nil, 0, ErrInfeasible
			}
			continue
		}
		rows = append(rows, r)
	}
	for k, j := range cols {
		upper := p.variables[j].Upper
		if p.variables[j].Domain == Binary {
			upper = 1
		}
		if upper > 0 {
			rows = append(rows, row{coefs: map[int]float64{k: 1}, relation: LessEqual, rhs: upper})
		}
	}

	sign := 1.0
	if p.sense == Maximize {
		sign = -1
	}

	// Columns that appear in no row sit at zero unless they improve the
	// objective forever.
	used := make([]bool, len(cols))
	for _, r := range rows {
		for k := range r.coefs {
			used[k] = true
		}
	}
	lpCol := make([]int, len(cols))
	nUsed := 0
	for k, j := range cols {
		if !used[k] {
			if sign*p.objective[j] < 0 {
				return nil, 0, ErrUnbounded
			}
			lpCol[k] = -1
			continue
		}
		lpCol[k] = nUsed
		nUsed++
	}

	values := make([]float64, n)
	for j, v := range fixed {
		values[j] = v
	}
	if len(rows) == 0 {
		return values, minimizationValue(p, values), nil
	}

	nTotal := nUsed
	for _, r := range rows {
		if r.relation != Equal {
			nTotal++
		}
	}

	m := len(rows)
	data := make([]float64, m*nTotal)
	rhs := make([]float64, m)
	cost := make([]float64, nTotal)
	for k, j := range cols {
		if lpCol[k] >= 0 {
			cost[lpCol[k]] = sign * p.objective[j]
		}
	}

	slack := nUsed
	for i, r := range rows {
		line := data[i*nTotal : (i+1)*nTotal]
		for k, coef := range r.coefs {
			line[lpCol[k]] = coef
		}
		switch r.relation {
		case LessEqual:
			line[slack] = 1
			slack++
		case GreaterEqual:
			line[slack] = -1
			slack++
		}
		rhs[i] = r.rhs
		if rhs[i] < 0 {
			rhs[i] = -rhs[i]
			for k := range line {
				line[k] = -line[k]
			}
		}
	}

	_, x, err := lp.Simplex(cost, mat.NewDense(m, nTotal, data), rhs, s.tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, 0, ErrInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, 0, ErrUnbounded
	case err != nil:
		return nil, 0, fmt.Errorf("%w: %v", ErrNumerical, err)
	}

	for k, j := range cols {
		if lpCol[k] < 0 {
			continue
		}
		v := x[lpCol[k]]
		if v < 0 && v > -feasibilityTolerance {
			v = 0
		}
		values[j] = v
	}
	return values, minimizationValue(p, values), nil
}

func satisfiedAtZero(rel Relation, rhs float64) bool {
	switch rel {
	case LessEqual:
		return rhs >= -feasibilityTolerance
	case GreaterEqual:
		return rhs <= feasibilityTolerance
	default:
		return math.Abs(rhs) <= feasibilityTolerance
	}
}

func mostFractional(p *Program, fixed map[int]float64, values []float64) int {
	branch := -1
	worst := integralityTolerance
	for j, v := range p.variables {
		if v.Domain != Binary {
			continue
		}
		if _, ok := fixed[j]; ok {
			continue
		}
		frac := math.Abs(values[j] - math.Round(values[j]))
		if frac > worst {
			worst = frac
			branch = j
		}
	}
	return branch
}

func minimizationValue(p *Program, values []float64) float64 {
	v := p.Evaluate(values)
	if p.sense == Maximize {
		return -v
	}
	return v
}

func pruneMargin(best float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(best))
}

func cloneFixings(src map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}
