package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/problem"
)

// Method names a pricing strategy.
type Method string

const (
	// BramsKilgourMethod is maxsum followed by second-price descent.
	BramsKilgourMethod Method = "brams-kilgour"
	// SungVlachMethod is maxsum followed by minimum-total envy-free prices.
	SungVlachMethod Method = "sung-vlach"
)

var aliases = map[string]Method{
	"brams-kilgour": BramsKilgourMethod,
	"bk":            BramsKilgourMethod,
	"sung-vlach":    SungVlachMethod,
	"sv":            SungVlachMethod,
}

// Methods lists the supported strategies.
func Methods() []Method {
	return []Method{BramsKilgourMethod, SungVlachMethod}
}

// ParseMethod resolves a method name or alias, case-insensitively.
func ParseMethod(name string) (Method, error) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownMethod, name)
	}
	return m, nil
}

// Prices maps each resource to its price.
type Prices map[problem.ResourceID]float64

// Total sums the prices in resource ID order so the result is reproducible.
func (p Prices) Total() float64 {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	total := 0.0
	for _, id := range ids {
		total += p[problem.ResourceID(id)]
	}
	return total
}

func (p Prices) clone() Prices {
	out := make(Prices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Outcome is the result of a pricing run.
type Outcome struct {
	Method Method
	Prices Prices
	// Trace is only produced by the descent strategy.
	Trace *Trace
}

// Strategy converts an assignment into prices. Implementations never modify
// the assignment.
type Strategy interface {
	Method() Method
	Price(ctx context.Context, p *problem.Problem, a *maxsum.Assignment) (*Outcome, error)
}

// Option configures a strategy.
type Option func(*settings)

type settings struct {
	logger    *zap.Logger
	maxRounds int
}

func defaultSettings() settings {
	return settings{
		logger:    zap.NewNop(),
		maxRounds: defaultMaxRounds,
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRounds bounds the number of descent rounds.
func WithMaxRounds(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// roundCents rounds to the currency's minor unit.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
