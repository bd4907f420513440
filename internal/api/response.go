package api

import (
	"time"

	"github.com/eugenenazirov/fair-rent/internal/division"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
	"github.com/eugenenazirov/fair-rent/internal/storage"
)

type divisionResponse struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"createdAt"`
	Method     string            `json:"method"`
	HouseCost  float64           `json:"houseCost"`
	Maxsum     float64           `json:"maxsum"`
	Surplus    float64           `json:"surplus"`
	Total      float64           `json:"total"`
	Allocation []allocationEntry `json:"allocation"`
	Trace      *traceResponse    `json:"trace,omitempty"`
	DurationMs float64           `json:"durationMs"`
}

type allocationEntry struct {
	Resource string   `json:"resource"`
	Capacity int      `json:"capacity"`
	Unit     string   `json:"unit"`
	Members  []string `json:"members"`
	Bid      float64  `json:"bid"`
	Price    float64  `json:"price"`
}

type traceResponse struct {
	Termination string          `json:"termination"`
	Rounds      []roundResponse `json:"rounds"`
}

type roundResponse struct {
	Number  int                `json:"number"`
	Prices  map[string]float64 `json:"prices"`
	Bidders map[string]string  `json:"bidders"`
	Lowered []string           `json:"lowered"`
	Total   float64            `json:"total"`
	Surplus float64            `json:"surplus"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Method    string    `json:"method"`
	HouseCost float64   `json:"houseCost"`
	Total     float64   `json:"total"`
}

type listResponse struct {
	Divisions []summaryResponse `json:"divisions"`
}

func newDivisionResponse(rec storage.Record) divisionResponse {
	res := rec.Result
	resp := divisionResponse{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Method:     string(res.Method),
		HouseCost:  rec.HouseCost,
		Total:      res.Allocation.Total,
		Allocation: allocationEntries(res.Allocation),
		Trace:      newTraceResponse(res.Trace),
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
	}
	if res.Assignment != nil {
		resp.Maxsum = res.Assignment.Maxsum
		resp.Surplus = res.Assignment.Surplus
	}
	return resp
}

func newSummaryResponse(rec storage.Record) summaryResponse {
	return summaryResponse{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Method:    string(rec.Result.Method),
		HouseCost: rec.HouseCost,
		Total:     rec.Result.Allocation.Total,
	}
}

func allocationEntries(a division.Allocation) []allocationEntry {
	out := make([]allocationEntry, 0, len(a.Rows))
	for _, row := range a.Rows {
		members := make([]string, 0, len(row.Members))
		for _, m := range row.Members {
			members = append(members, string(m))
		}
		out = append(out, allocationEntry{
			Resource: string(row.Resource),
			Capacity: row.Capacity,
			Unit:     string(row.Unit),
			Members:  members,
			Bid:      row.Bid,
			Price:    row.Price,
		})
	}
	return out
}

func newTraceResponse(t *pricing.Trace) *traceResponse {
	if t == nil {
		return nil
	}
	out := &traceResponse{
		Termination: string(t.Termination),
		Rounds:      make([]roundResponse, 0, len(t.Rounds)),
	}
	for _, r := range t.Rounds {
		round := roundResponse{
			Number:  r.Number,
			Prices:  make(map[string]float64, len(r.Prices)),
			Bidders: make(map[string]string, len(r.Bidders)),
			Lowered: make([]string, 0, len(r.Lowered)),
			Total:   r.Total,
			Surplus: r.Surplus,
		}
		for id, price := range r.Prices {
			round.Prices[string(id)] = price
		}
		for id, unit := range r.Bidders {
			round.Bidders[string(id)] = string(unit)
		}
		for _, id := range r.Lowered {
			round.Lowered = append(round.Lowered, string(id))
		}
		out.Rounds = append(out.Rounds, round)
	}
	return out
}
