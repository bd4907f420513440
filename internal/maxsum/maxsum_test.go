package maxsum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/solver"
)

func newOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	return New(solver.NewSimplex(), WithLogger(zaptest.NewLogger(t)))
}

func mustProblem(t *testing.T, in problem.Input) *problem.Problem {
	t.Helper()
	p, err := problem.New(in)
	require.NoError(t, err)
	return p
}

func twoRoomInput(houseCost float64) problem.Input {
	return problem.Input{
		HouseCost: houseCost,
		Resources: []problem.Resource{{ID: "r1", Capacity: 1}, {ID: "r2", Capacity: 1}},
		Units:     []problem.Unit{problem.NewSingle("A"), problem.NewSingle("B")},
		Bids: problem.Bids{
			"A": {"r1": 1000, "r2": 900},
			"B": {"r1": 950, "r2": 1000},
		},
	}
}

func TestOptimizeTwoRooms(t *testing.T) {
	t.Parallel()

	p := mustProblem(t, twoRoomInput(1900))
	a, err := newOptimizer(t).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, map[problem.ResourceID]problem.UnitID{"r1": "A", "r2": "B"}, a.Occupant)
	assert.Equal(t, map[problem.ResourceID]float64{"r1": 1000, "r2": 1000}, a.WinningBids)
	assert.Equal(t, 2000.0, a.Maxsum)
	assert.Equal(t, 100.0, a.Surplus)

	r, ok := a.ResourceFor("B")
	require.True(t, ok)
	assert.Equal(t, problem.ResourceID("r2"), r)
}

func TestOptimizeInsufficientValue(t *testing.T) {
	t.Parallel()

	p := mustProblem(t, twoRoomInput(2500))
	a, err := newOptimizer(t).Optimize(context.Background(), p)

	require.ErrorIs(t, err, ErrInsufficientValue)
	var ive *InsufficientValueError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, 500.0, ive.Shortfall())

	require.NotNil(t, a, "the assignment is still reported")
	assert.Equal(t, -500.0, a.Surplus)
}

func TestOptimizeZeroSurplus(t *testing.T) {
	t.Parallel()

	p := mustProblem(t, twoRoomInput(2000))
	a, err := newOptimizer(t).Optimize(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, a.Surplus)
}

func TestOptimizeCoupleTakesSuite(t *testing.T) {
	t.Parallel()

	p := mustProblem(t, problem.Input{
		HouseCost: 3000,
		Resources: []problem.Resource{
			{ID: "suite", Capacity: 2},
			{ID: "north", Capacity: 1},
			{ID: "south", Capacity: 1},
		},
		Units: []problem.Unit{
			problem.NewPair("couple", "C1", "C2"),
			problem.NewSingle("A"),
			problem.NewSingle("B"),
		},
		Bids: problem.Bids{
			"couple": {"suite": 1800},
			"A":      {"suite": 950, "north": 700, "south": 600},
			"B":      {"suite": 850, "north": 600, "south": 700},
		},
	})

	a, err := newOptimizer(t).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, problem.UnitID("couple"), a.Occupant["suite"])
	assert.Equal(t, problem.UnitID("A"), a.Occupant["north"])
	assert.Equal(t, problem.UnitID("B"), a.Occupant["south"])
	assert.Equal(t, 3200.0, a.Maxsum)
}

func TestOptimizeSinglesMayNotShareSuite(t *testing.T) {
	t.Parallel()

	// Without the exclusion rule the two singles would fill the suite together.
	p := mustProblem(t, problem.Input{
		HouseCost: 1000,
		Resources: []problem.Resource{{ID: "suite", Capacity: 2}},
		Units:     []problem.Unit{problem.NewSingle("A"), problem.NewSingle("B")},
		Bids: problem.Bids{
			"A": {"suite": 950},
			"B": {"suite": 850},
		},
	})

	_, err := newOptimizer(t).Optimize(context.Background(), p)
	require.ErrorIs(t, err, ErrInfeasibleAssignment)
}

func TestOptimizeMatchesBruteForce(t *testing.T) {
	t.Parallel()

	bids := map[problem.UnitID][]float64{
		"A": {410, 300, 220, 170},
		"B": {380, 340, 200, 180},
		"C": {300, 310, 290, 200},
		"D": {350, 280, 260, 210},
	}
	rooms := []problem.ResourceID{"r1", "r2", "r3", "r4"}
	people := []problem.UnitID{"A", "B", "C", "D"}

	in := problem.Input{HouseCost: 1000, Bids: problem.Bids{}}
	for _, r := range rooms {
		in.Resources = append(in.Resources, problem.Resource{ID: r, Capacity: 1})
	}
	for _, u := range people {
		in.Units = append(in.Units, problem.NewSingle(problem.AgentID(u)))
		in.Bids[u] = map[problem.ResourceID]float64{}
		for i, r := range rooms {
			in.Bids[u][r] = bids[u][i]
		}
	}

	a, err := newOptimizer(t).Optimize(context.Background(), mustProblem(t, in))
	require.NoError(t, err)

	best := 0.0
	permute([]int{0, 1, 2, 3}, 0, func(perm []int) {
		total := 0.0
		for i, u := range people {
			total += bids[u][perm[i]]
		}
		if total > best {
			best = total
		}
	})
	assert.InDelta(t, best, a.Maxsum, 1e-9)

	seen := map[problem.UnitID]bool{}
	for _, r := range rooms {
		u, ok := a.UnitFor(r)
		require.True(t, ok, "room %s is empty", r)
		assert.False(t, seen[u], "unit %s placed twice", u)
		seen[u] = true
	}
}

func TestFormulateCountsConstraints(t *testing.T) {
	t.Parallel()

	p := mustProblem(t, problem.Input{
		Resources: []problem.Resource{{ID: "suite", Capacity: 2}, {ID: "a", Capacity: 1}, {ID: "b", Capacity: 1}},
		Units: []problem.Unit{
			problem.NewPair("P", "p1", "p2"),
			problem.NewSingle("x"),
			problem.NewSingle("y"),
		},
		Bids: problem.Bids{
			"P": {"suite": 10},
			"x": {"suite": 1, "a": 1, "b": 1},
			"y": {"suite": 1, "a": 1, "b": 1},
		},
	})

	prog, decisions := formulate(p)
	assert.Len(t, decisions, 7)
	assert.Equal(t, 7, prog.NumVariables())
	// 3 unit rows, 3 capacity rows, 1 exclusion row for x/y in the suite.
	assert.Equal(t, 7, prog.NumConstraints())
}

func permute(xs []int, k int, visit func([]int)) {
	if k == len(xs) {
		visit(xs)
		return
	}
	for i := k; i < len(xs); i++ {
		xs[k], xs[i] = xs[i], xs[k]
		permute(xs, k+1, visit)
		xs[k], xs[i] = xs[i], xs[k]
	}
}
