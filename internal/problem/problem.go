package problem

import (
	"fmt"
	"math"
)

// Problem is a validated division problem. It is never mutated after New
// returns, and every accessor hands out copies.
type Problem struct {
	houseCost float64
	resources []Resource
	units     []Unit

	resourceIndex map[ResourceID]int
	unitIndex     map[UnitID]int
	bids          Bids
}

// New validates the input and builds an immutable Problem. All violations are
// reported together in a *ValidationError.
func New(in Input) (*Problem, error) {
	v := &validator{}

	if math.IsNaN(in.HouseCost) || math.IsInf(in.HouseCost, 0) || in.HouseCost < 0 {
		v.addf("house cost must be a non-negative number, got %v", in.HouseCost)
	}
	if len(in.Resources) == 0 {
		v.addf("at least one resource is required")
	}
	if len(in.Units) == 0 {
		v.addf("at least one unit is required")
	}

	p := &Problem{
		houseCost:     in.HouseCost,
		resources:     make([]Resource, 0, len(in.Resources)),
		units:         make([]Unit, 0, len(in.Units)),
		resourceIndex: make(map[ResourceID]int, len(in.Resources)),
		unitIndex:     make(map[UnitID]int, len(in.Units)),
		bids:          make(Bids, len(in.Units)),
	}

	capacity := 0
	for _, r := range in.Resources {
		if r.ID == "" {
			v.addf("resource with empty id")
			continue
		}
		if _, dup := p.resourceIndex[r.ID]; dup {
			v.addf("duplicate resource %q", r.ID)
			continue
		}
		if r.Capacity != 1 && r.Capacity != 2 {
			v.addf("resource %q has capacity %d, want 1 or 2", r.ID, r.Capacity)
		}
		p.resourceIndex[r.ID] = len(p.resources)
		p.resources = append(p.resources, r)
		capacity += r.Capacity
	}

	seats := 0
	owner := make(map[AgentID]UnitID)
	for _, u := range in.Units {
		if u.ID == "" {
			v.addf("unit with empty id")
			continue
		}
		if _, dup := p.unitIndex[u.ID]; dup {
			v.addf("duplicate unit %q", u.ID)
			continue
		}
		v.checkUnit(u)
		for _, agent := range u.Members {
			if prev, taken := owner[agent]; taken && agent != "" {
				v.addf("agent %q appears in units %q and %q", agent, prev, u.ID)
				continue
			}
			owner[agent] = u.ID
		}

		members := make([]AgentID, len(u.Members))
		copy(members, u.Members)
		u.Members = members

		p.unitIndex[u.ID] = len(p.units)
		p.units = append(p.units, u)
		seats += u.Size()
	}

	for unitID, row := range in.Bids {
		if _, ok := p.unitIndex[unitID]; !ok {
			v.addf("bids given for unknown unit %q", unitID)
			continue
		}
		for resourceID := range row {
			if _, ok := p.resourceIndex[resourceID]; !ok {
				v.addf("unit %q bids on unknown resource %q", unitID, resourceID)
			}
		}
	}

	for _, u := range p.units {
		row := make(map[ResourceID]float64, len(p.resources))
		given := in.Bids[u.ID]
		for _, r := range p.resources {
			bid, ok := given[r.ID]
			switch eligible := p.Eligible(u.ID, r.ID); {
			case eligible && !ok:
				v.addf("unit %q has no bid for resource %q", u.ID, r.ID)
			case !eligible && ok:
				v.addf("unit %q may not bid on capacity-%d resource %q", u.ID, r.Capacity, r.ID)
			case ok:
				if math.IsNaN(bid) || math.IsInf(bid, 0) || bid < 0 {
					v.addf("unit %q bid %v on resource %q, want a non-negative number", u.ID, bid, r.ID)
				}
				row[r.ID] = bid
			}
		}
		p.bids[u.ID] = row
	}

	if len(p.resources) > 0 && len(p.units) > 0 && capacity != seats {
		v.addf("total capacity %d does not match %d occupants", capacity, seats)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return p, nil
}

// HouseCost is the total the prices must recover.
func (p *Problem) HouseCost() float64 {
	return p.houseCost
}

// Resources returns the resources in declaration order.
func (p *Problem) Resources() []Resource {
	out := make([]Resource, len(p.resources))
	copy(out, p.resources)
	return out
}

// Units returns the units in declaration order.
func (p *Problem) Units() []Unit {
	out := make([]Unit, len(p.units))
	for i, u := range p.units {
		out[i] = cloneUnit(u)
	}
	return out
}

// Unit looks up a unit by ID.
func (p *Problem) Unit(id UnitID) (Unit, bool) {
	i, ok := p.unitIndex[id]
	if !ok {
		return Unit{}, false
	}
	return cloneUnit(p.units[i]), true
}

// Resource looks up a resource by ID.
func (p *Problem) Resource(id ResourceID) (Resource, bool) {
	i, ok := p.resourceIndex[id]
	if !ok {
		return Resource{}, false
	}
	return p.resources[i], true
}

// UnitOrder is the position of the unit in declaration order, or -1.
func (p *Problem) UnitOrder(id UnitID) int {
	if i, ok := p.unitIndex[id]; ok {
		return i
	}
	return -1
}

// Eligible reports whether the unit may occupy the resource. Couples only fit
// capacity-2 resources; singles fit anything.
func (p *Problem) Eligible(unit UnitID, resource ResourceID) bool {
	ui, ok := p.unitIndex[unit]
	if !ok {
		return false
	}
	ri, ok := p.resourceIndex[resource]
	if !ok {
		return false
	}
	return p.units[ui].Size() <= p.resources[ri].Capacity
}

// Bid returns the unit's bid for the resource, if the unit is eligible for it.
func (p *Problem) Bid(unit UnitID, resource ResourceID) (float64, bool) {
	bid, ok := p.bids[unit][resource]
	return bid, ok
}

// Seats is the total number of agents across all units.
func (p *Problem) Seats() int {
	n := 0
	for _, u := range p.units {
		n += u.Size()
	}
	return n
}

func cloneUnit(u Unit) Unit {
	members := make([]AgentID, len(u.Members))
	copy(members, u.Members)
	u.Members = members
	return u
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) checkUnit(u Unit) {
	switch u.Kind {
	case Single:
		if len(u.Members) != 1 {
			v.addf("single unit %q must have exactly one member, got %d", u.ID, len(u.Members))
			return
		}
		if UnitID(u.Members[0]) != u.ID {
			v.addf("single unit %q must be identified by its agent %q", u.ID, u.Members[0])
		}
	case Pair:
		if len(u.Members) != 2 {
			v.addf("pair unit %q must have exactly two members, got %d", u.ID, len(u.Members))
			return
		}
		if u.Members[0] == u.Members[1] {
			v.addf("pair unit %q lists agent %q twice", u.ID, u.Members[0])
		}
	default:
		v.addf("unit %q has unknown kind %d", u.ID, int(u.Kind))
	}
	for _, m := range u.Members {
		if m == "" {
			v.addf("unit %q has a member with empty id", u.ID)
		}
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}
