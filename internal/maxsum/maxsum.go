// Package maxsum finds the assignment of units to resources that maximises
// the total declared value, subject to capacity and pairing rules.
package maxsum

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/solver"
)

// surplusEpsilon absorbs float noise when comparing maxsum with house cost.
const surplusEpsilon = 1e-9

// Assignment is the winning allocation. It is never modified after Optimize
// returns it.
type Assignment struct {
	Occupant    map[problem.ResourceID]problem.UnitID
	WinningBids map[problem.ResourceID]float64
	Maxsum      float64
	HouseCost   float64
	// Surplus is Maxsum minus HouseCost.
	Surplus float64
}

// UnitFor returns the unit occupying the resource.
func (a *Assignment) UnitFor(r problem.ResourceID) (problem.UnitID, bool) {
	u, ok := a.Occupant[r]
	return u, ok
}

// ResourceFor returns the resource the unit occupies.
func (a *Assignment) ResourceFor(u problem.UnitID) (problem.ResourceID, bool) {
	for r, occupant := range a.Occupant {
		if occupant == u {
			return r, true
		}
	}
	return "", false
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger attaches a logger for solve diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Optimizer formulates the maxsum 0/1 program and delegates it to a solver.
type Optimizer struct {
	solver solver.Solver
	logger *zap.Logger
}

// New creates an Optimizer backed by the given solver.
func New(s solver.Solver, opts ...Option) *Optimizer {
	o := &Optimizer{
		solver: s,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type decision struct {
	unit     problem.UnitID
	resource problem.ResourceID
}

// Optimize returns the maximum-value assignment. When the assignment exists
// but is worth less than the house cost, it is returned together with an
// *InsufficientValueError. Ties between optimal assignments are resolved by
// the solver.
func (o *Optimizer) Optimize(ctx context.Context, p *problem.Problem) (*Assignment, error) {
	prog, decisions := formulate(p)

	sol, err := o.solver.Solve(ctx, prog)
	if err != nil {
		if errors.Is(err, solver.ErrInfeasible) {
			return nil, fmt.Errorf("%w: %v", ErrInfeasibleAssignment, err)
		}
		return nil, fmt.Errorf("solve maxsum program: %w", err)
	}

	a := &Assignment{
		Occupant:    make(map[problem.ResourceID]problem.UnitID, len(p.Resources())),
		WinningBids: make(map[problem.ResourceID]float64, len(p.Resources())),
		HouseCost:   p.HouseCost(),
	}
	for v, d := range decisions {
		if sol.Value(v) < 0.5 {
			continue
		}
		if prev, taken := a.Occupant[d.resource]; taken {
			return nil, fmt.Errorf("solver placed units %q and %q in resource %q", prev, d.unit, d.resource)
		}
		bid, _ := p.Bid(d.unit, d.resource)
		a.Occupant[d.resource] = d.unit
		a.WinningBids[d.resource] = bid
	}
	for _, r := range p.Resources() {
		if _, ok := a.Occupant[r.ID]; !ok {
			return nil, fmt.Errorf("%w: resource %q left empty", ErrInfeasibleAssignment, r.ID)
		}
		a.Maxsum += a.WinningBids[r.ID]
	}
	a.Surplus = a.Maxsum - a.HouseCost
	if math.Abs(a.Surplus) < surplusEpsilon {
		a.Surplus = 0
	}

	o.logger.Debug("maxsum assignment solved",
		zap.Float64("maxsum", a.Maxsum),
		zap.Float64("surplus", a.Surplus),
		zap.Int("variables", prog.NumVariables()),
		zap.Int("constraints", prog.NumConstraints()),
		zap.Int("nodes", sol.Nodes),
	)

	if a.Surplus < 0 {
		return a, &InsufficientValueError{Maxsum: a.Maxsum, HouseCost: a.HouseCost}
	}
	return a, nil
}

// formulate builds the 0/1 program. The returned slice maps variable index to
// the (unit, resource) decision it represents.
func formulate(p *problem.Problem) (*solver.Program, []decision) {
	prog := solver.NewProgram(solver.Maximize)
	resources := p.Resources()
	units := p.Units()

	var decisions []decision
	byUnit := make(map[problem.UnitID][]solver.Term, len(units))
	byResource := make(map[problem.ResourceID][]solver.Term, len(resources))
	singleVar := make(map[problem.ResourceID]map[problem.UnitID]int, len(resources))

	for _, u := range units {
		for _, r := range resources {
			bid, ok := p.Bid(u.ID, r.ID)
			if !ok {
				continue
			}
			v := prog.AddVariable(fmt.Sprintf("x[%s,%s]", u.ID, r.ID), solver.Binary)
			prog.SetObjective(v, bid)
			decisions = append(decisions, decision{unit: u.ID, resource: r.ID})

			byUnit[u.ID] = append(byUnit[u.ID], solver.Term{Var: v, Coef: 1})
			byResource[r.ID] = append(byResource[r.ID], solver.Term{Var: v, Coef: float64(u.Size())})
			if !u.IsPair() {
				if singleVar[r.ID] == nil {
					singleVar[r.ID] = make(map[problem.UnitID]int)
				}
				singleVar[r.ID][u.ID] = v
			}
		}
	}

	for _, u := range units {
		prog.AddConstraint("one-resource:"+string(u.ID), solver.Equal, 1, byUnit[u.ID]...)
	}
	for _, r := range resources {
		prog.AddConstraint("capacity:"+string(r.ID), solver.LessEqual, float64(r.Capacity), byResource[r.ID]...)
	}

	// Two unrelated singles may not share a capacity-2 resource.
	for _, r := range resources {
		if r.Capacity < 2 {
			continue
		}
		for i, a := range units {
			va, ok := singleVar[r.ID][a.ID]
			if !ok {
				continue
			}
			for _, b := range units[i+1:] {
				vb, ok := singleVar[r.ID][b.ID]
				if !ok {
					continue
				}
				prog.AddConstraint(fmt.Sprintf("exclusive:%s:%s:%s", r.ID, a.ID, b.ID), solver.LessEqual, 1,
					solver.Term{Var: va, Coef: 1}, solver.Term{Var: vb, Coef: 1})
			}
		}
	}

	return prog, decisions
}
