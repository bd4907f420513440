package problem

// AgentID identifies a single person.
type AgentID string

// UnitID identifies the occupant entity that receives exactly one resource.
type UnitID string

// ResourceID identifies a room or bed.
type ResourceID string

// UnitKind distinguishes single agents from couples.
type UnitKind int

const (
	// Single is one agent occupying one seat.
	Single UnitKind = iota + 1
	// Pair is a couple of two agents jointly occupying a capacity-2 resource.
	Pair
)

func (k UnitKind) String() string {
	switch k {
	case Single:
		return "single"
	case Pair:
		return "pair"
	default:
		return "unknown"
	}
}

// Unit is the atomic occupant: a single agent or a couple.
type Unit struct {
	ID      UnitID
	Kind    UnitKind
	Members []AgentID
}

// NewSingle returns a single-agent unit whose ID is the agent's ID.
func NewSingle(agent AgentID) Unit {
	return Unit{ID: UnitID(agent), Kind: Single, Members: []AgentID{agent}}
}

// NewPair returns a couple occupying one capacity-2 resource.
func NewPair(id UnitID, first, second AgentID) Unit {
	return Unit{ID: id, Kind: Pair, Members: []AgentID{first, second}}
}

// Size is the number of seats the unit consumes.
func (u Unit) Size() int {
	if u.Kind == Pair {
		return 2
	}
	return 1
}

// IsPair reports whether the unit is a couple.
func (u Unit) IsPair() bool {
	return u.Kind == Pair
}

// Resource is an exclusive-use room with a seat capacity of 1 or 2.
type Resource struct {
	ID       ResourceID
	Capacity int
}

// Bids maps each unit to its bid for every resource it may occupy.
type Bids map[UnitID]map[ResourceID]float64

// Input is the raw material for New. Slices keep declaration order, which
// every downstream computation follows.
type Input struct {
	HouseCost float64
	Resources []Resource
	Units     []Unit
	Bids      Bids
}
