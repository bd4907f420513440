package division

import (
	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
	"github.com/eugenenazirov/fair-rent/internal/problem"
)

// Row is the final line for one resource.
type Row struct {
	Resource problem.ResourceID
	Capacity int
	Unit     problem.UnitID
	Members  []problem.AgentID
	Bid      float64
	Price    float64
}

// Allocation is the per-resource outcome in resource declaration order.
type Allocation struct {
	Rows  []Row
	Total float64
}

// ByResource indexes the rows by resource.
func (a Allocation) ByResource() map[problem.ResourceID]Row {
	out := make(map[problem.ResourceID]Row, len(a.Rows))
	for _, r := range a.Rows {
		out[r.Resource] = r
	}
	return out
}

// Assemble pairs every resource with its occupant and price. It trusts the
// prices it is given and performs no checks of its own.
func Assemble(p *problem.Problem, a *maxsum.Assignment, prices pricing.Prices) Allocation {
	resources := p.Resources()
	out := Allocation{Rows: make([]Row, 0, len(resources))}
	for _, r := range resources {
		unitID := a.Occupant[r.ID]
		row := Row{
			Resource: r.ID,
			Capacity: r.Capacity,
			Unit:     unitID,
			Bid:      a.WinningBids[r.ID],
			Price:    prices[r.ID],
		}
		if u, ok := p.Unit(unitID); ok {
			row.Members = u.Members
		}
		out.Rows = append(out.Rows, row)
		out.Total += row.Price
	}
	return out
}
