package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/solver"
)

const (
	// noiseFloor is the magnitude below which LP values are treated as zero.
	noiseFloor = 1e-9
	// totalSlack is how far the LP total may exceed the house cost.
	totalSlack = 1e-6
)

// SungVlach finds the envy-free price vector of minimum total that still
// covers the house cost.
type SungVlach struct {
	solver   solver.Solver
	settings settings
}

// NewSungVlach creates the minimum-envy strategy backed by an LP solver.
func NewSungVlach(s solver.Solver, opts ...Option) *SungVlach {
	st := defaultSettings()
	for _, opt := range opts {
		opt(&st)
	}
	return &SungVlach{solver: s, settings: st}
}

// Method implements Strategy.
func (s *SungVlach) Method() Method {
	return SungVlachMethod
}

// Price solves the envy-free LP for the assignment.
func (s *SungVlach) Price(ctx context.Context, p *problem.Problem, a *maxsum.Assignment) (*Outcome, error) {
	prog, vars, err := envyProgram(p, a)
	if err != nil {
		return nil, err
	}

	sol, err := s.solver.Solve(ctx, prog)
	if err != nil {
		if errors.Is(err, solver.ErrInfeasible) {
			return nil, fmt.Errorf("%w: %v", ErrEnvyInfeasible, err)
		}
		return nil, fmt.Errorf("solve envy-free program: %w", err)
	}

	// Prices cannot go negative, so envy bounds can push the cheapest
	// envy-free total above the house cost.
	if sol.Objective > p.HouseCost()+totalSlack {
		return nil, fmt.Errorf("%w: cheapest non-negative envy-free prices total %.2f, above house cost %.2f",
			ErrEnvyInfeasible, sol.Objective, p.HouseCost())
	}

	prices := make(Prices, len(vars))
	for r, v := range vars {
		price := sol.Value(v)
		if math.Abs(price) < noiseFloor {
			price = 0
		}
		prices[r] = price
	}

	s.settings.logger.Debug("envy-free prices solved",
		zap.Float64("total", sol.Objective),
		zap.Int("constraints", prog.NumConstraints()),
	)
	return &Outcome{Method: SungVlachMethod, Prices: prices}, nil
}

// envyProgram builds: minimise Σp subject to Σp ≥ house cost and, for every
// ordered pair (r1, r2), bid(o1, r1) − p(r1) ≥ bid(o1, r2) − p(r2), where o1
// occupies r1 and is eligible for r2.
func envyProgram(p *problem.Problem, a *maxsum.Assignment) (*solver.Program, map[problem.ResourceID]int, error) {
	resources := p.Resources()
	prog := solver.NewProgram(solver.Minimize)
	vars := make(map[problem.ResourceID]int, len(resources))
	floor := make([]solver.Term, 0, len(resources))
	for _, r := range resources {
		v := prog.AddVariable("p["+string(r.ID)+"]", solver.Continuous)
		prog.SetObjective(v, 1)
		vars[r.ID] = v
		floor = append(floor, solver.Term{Var: v, Coef: 1})
	}

	for _, r1 := range resources {
		occupant, ok := a.UnitFor(r1.ID)
		if !ok {
			return nil, nil, fmt.Errorf("resource %q has no occupant", r1.ID)
		}
		own, ok := p.Bid(occupant, r1.ID)
		if !ok {
			return nil, nil, fmt.Errorf("unit %q has no bid for its resource %q", occupant, r1.ID)
		}
		for _, r2 := range resources {
			if r2.ID == r1.ID {
				continue
			}
			other, ok := p.Bid(occupant, r2.ID)
			if !ok {
				continue
			}
			prog.AddConstraint(fmt.Sprintf("no-envy:%s:%s", r1.ID, r2.ID), solver.LessEqual, own-other,
				solver.Term{Var: vars[r1.ID], Coef: 1},
				solver.Term{Var: vars[r2.ID], Coef: -1},
			)
		}
	}
	prog.AddConstraint("house-cost", solver.GreaterEqual, p.HouseCost(), floor...)

	return prog, vars, nil
}

// EnvyViolations lists every ordered pair (occupant's resource, other
// resource) where the occupant would rather pay the other price, beyond tol.
func EnvyViolations(p *problem.Problem, a *maxsum.Assignment, prices Prices, tol float64) [][2]problem.ResourceID {
	var out [][2]problem.ResourceID
	resources := p.Resources()
	for _, r1 := range resources {
		occupant, ok := a.UnitFor(r1.ID)
		if !ok {
			continue
		}
		own, _ := p.Bid(occupant, r1.ID)
		for _, r2 := range resources {
			if r2.ID == r1.ID {
				continue
			}
			other, ok := p.Bid(occupant, r2.ID)
			if !ok {
				continue
			}
			if (own - prices[r1.ID]) < (other-prices[r2.ID])-tol {
				out = append(out, [2]problem.ResourceID{r1.ID, r2.ID})
			}
		}
	}
	return out
}
