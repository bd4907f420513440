package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/problem"
)

const (
	defaultMaxRounds = 1000
	surplusEpsilon   = 1e-9
)

// Termination describes how the descent finished.
type Termination string

const (
	// NoSurplus means maxsum already equalled the house cost.
	NoSurplus Termination = "no-surplus"
	// ExactLanding means a round landed exactly on the house cost.
	ExactLanding Termination = "exact"
	// Proportional means the descent overshot and the surplus was split.
	Proportional Termination = "proportional"
)

// Round is a snapshot of one descent round.
type Round struct {
	Number int
	// Prices are the tentative prices after the round.
	Prices Prices
	// Bidders records whose bid set each tentative price.
	Bidders map[problem.ResourceID]problem.UnitID
	// Lowered lists the resources whose price fell this round.
	Lowered []problem.ResourceID
	// Diffs is the cumulative fall of each price from its winning bid.
	Diffs   Prices
	Total   float64
	Surplus float64
}

// Trace is the full history of a descent run.
type Trace struct {
	Rounds      []Round
	Termination Termination
}

// BramsKilgour prices resources by second-price descent.
type BramsKilgour struct {
	settings settings
}

// NewBramsKilgour creates the descent strategy.
func NewBramsKilgour(opts ...Option) *BramsKilgour {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &BramsKilgour{settings: s}
}

// Method implements Strategy.
func (b *BramsKilgour) Method() Method {
	return BramsKilgourMethod
}

type candidate struct {
	unit  problem.UnitID
	bid   float64
	order int
}

// Price runs the descent. It requires a non-negative maxsum surplus.
func (b *BramsKilgour) Price(ctx context.Context, p *problem.Problem, a *maxsum.Assignment) (*Outcome, error) {
	if a.Surplus < 0 {
		return nil, &maxsum.InsufficientValueError{Maxsum: a.Maxsum, HouseCost: a.HouseCost}
	}

	resources := p.Resources()
	winning := make(Prices, len(resources))
	for _, r := range resources {
		winning[r.ID] = a.WinningBids[r.ID]
	}

	trace := &Trace{}
	if a.Surplus == 0 {
		trace.Termination = NoSurplus
		return &Outcome{Method: BramsKilgourMethod, Prices: winning, Trace: trace}, nil
	}

	ladders := bidLadders(p, resources)
	tentative := winning.clone()
	bidders := make(map[problem.ResourceID]problem.UnitID, len(resources))
	for r, u := range a.Occupant {
		bidders[r] = u
	}

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if round > b.settings.maxRounds {
			return nil, &NonterminationError{
				Rounds:  round - 1,
				Surplus: tentative.Total() - a.HouseCost,
				Reason:  fmt.Sprintf("round limit %d exceeded", b.settings.maxRounds),
			}
		}

		var lowered []problem.ResourceID
		diffs := make(Prices, len(resources))
		for _, r := range resources {
			if next, ok := nextLower(ladders[r.ID], tentative[r.ID]); ok {
				tentative[r.ID] = next.bid
				bidders[r.ID] = next.unit
				lowered = append(lowered, r.ID)
			}
			diffs[r.ID] = winning[r.ID] - tentative[r.ID]
		}

		total := 0.0
		for _, r := range resources {
			total += tentative[r.ID]
		}
		surplus := total - a.HouseCost
		if math.Abs(surplus) < surplusEpsilon {
			surplus = 0
		}

		trace.Rounds = append(trace.Rounds, Round{
			Number:  round,
			Prices:  tentative.clone(),
			Bidders: cloneBidders(bidders),
			Lowered: lowered,
			Diffs:   diffs,
			Total:   total,
			Surplus: surplus,
		})
		b.settings.logger.Debug("descent round complete",
			zap.Int("round", round),
			zap.Int("lowered", len(lowered)),
			zap.Float64("total", total),
			zap.Float64("surplus", surplus),
		)

		switch {
		case surplus == 0:
			trace.Termination = ExactLanding
			return &Outcome{Method: BramsKilgourMethod, Prices: tentative, Trace: trace}, nil
		case surplus < 0:
			trace.Termination = Proportional
			return &Outcome{
				Method: BramsKilgourMethod,
				Prices: allocateProportionally(resources, winning, diffs, a.Surplus),
				Trace:  trace,
			}, nil
		case len(lowered) == 0:
			return nil, &NonterminationError{
				Rounds:  round,
				Surplus: surplus,
				Reason:  "no lower bid remains on any resource",
			}
		}
	}
}

// bidLadders returns, per resource, every eligible bid sorted descending with
// ties broken by unit declaration order.
func bidLadders(p *problem.Problem, resources []problem.Resource) map[problem.ResourceID][]candidate {
	units := p.Units()
	ladders := make(map[problem.ResourceID][]candidate, len(resources))
	for _, r := range resources {
		var ladder []candidate
		for i, u := range units {
			if bid, ok := p.Bid(u.ID, r.ID); ok {
				ladder = append(ladder, candidate{unit: u.ID, bid: bid, order: i})
			}
		}
		sort.SliceStable(ladder, func(i, j int) bool {
			if ladder[i].bid != ladder[j].bid {
				return ladder[i].bid > ladder[j].bid
			}
			return ladder[i].order < ladder[j].order
		})
		ladders[r.ID] = ladder
	}
	return ladders
}

// nextLower picks the highest bid strictly below price.
func nextLower(ladder []candidate, price float64) (candidate, bool) {
	for _, c := range ladder {
		if c.bid < price {
			return c, true
		}
	}
	return candidate{}, false
}

// allocateProportionally spreads the maxsum surplus over resources in
// proportion to how far each price fell, rounded to cents.
func allocateProportionally(resources []problem.Resource, winning, diffs Prices, surplus float64) Prices {
	sumDiff := 0.0
	for _, r := range resources {
		sumDiff += diffs[r.ID]
	}
	out := make(Prices, len(resources))
	for _, r := range resources {
		share := 0.0
		if sumDiff > 0 {
			share = diffs[r.ID] / sumDiff
		}
		out[r.ID] = roundCents(winning[r.ID] - share*surplus)
	}
	return out
}

func cloneBidders(src map[problem.ResourceID]problem.UnitID) map[problem.ResourceID]problem.UnitID {
	out := make(map[problem.ResourceID]problem.UnitID, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
