// Package division runs the full pipeline: maxsum assignment, one pricing
// strategy, and assembly of the per-resource result.
package division

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/solver"
)

// Outcome labels used in logs and metrics.
const (
	OutcomeOK                = "ok"
	OutcomeInvalid           = "invalid"
	OutcomeInfeasible        = "infeasible"
	OutcomeInsufficientValue = "insufficient_value"
	OutcomeNontermination    = "nontermination"
	OutcomeEnvyInfeasible    = "envy_infeasible"
	OutcomeTimeout           = "timeout"
	OutcomeError             = "error"
)

// Classify maps an error from Divide to its outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, problem.ErrValidation), errors.Is(err, pricing.ErrUnknownMethod):
		return OutcomeInvalid
	case errors.Is(err, maxsum.ErrInfeasibleAssignment):
		return OutcomeInfeasible
	case errors.Is(err, maxsum.ErrInsufficientValue):
		return OutcomeInsufficientValue
	case errors.Is(err, pricing.ErrPricingNontermination):
		return OutcomeNontermination
	case errors.Is(err, pricing.ErrEnvyInfeasible):
		return OutcomeEnvyInfeasible
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, solver.ErrNodeLimit):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// Recorder receives run statistics.
type Recorder interface {
	ObserveDivision(method, outcome string, d time.Duration)
	ObserveDescentRounds(rounds int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDivision(string, string, time.Duration) {}
func (nopRecorder) ObserveDescentRounds(int)                      {}

// Result is everything a run produces.
type Result struct {
	Method     pricing.Method
	Assignment *maxsum.Assignment
	Prices     pricing.Prices
	Allocation Allocation
	// Trace is set for second-price descent runs.
	Trace    *pricing.Trace
	Duration time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger shared by the pipeline stages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMaxDescentRounds bounds the second-price descent.
func WithMaxDescentRounds(n int) Option {
	return func(s *Service) {
		s.maxRounds = n
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Service divides rent. It holds no per-run state and is safe for concurrent
// use when its solver is.
type Service struct {
	optimizer  *maxsum.Optimizer
	strategies map[pricing.Method]pricing.Strategy

	logger    *zap.Logger
	recorder  Recorder
	maxRounds int
	clock     func() time.Time
}

// New wires the optimizer and both pricing strategies around one solver.
func New(s solver.Solver, opts ...Option) *Service {
	svc := &Service{
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	pricingOpts := []pricing.Option{
		pricing.WithLogger(svc.logger),
		pricing.WithMaxRounds(svc.maxRounds),
	}
	svc.optimizer = maxsum.New(s, maxsum.WithLogger(svc.logger))
	svc.strategies = map[pricing.Method]pricing.Strategy{
		pricing.BramsKilgourMethod: pricing.NewBramsKilgour(pricingOpts...),
		pricing.SungVlachMethod:    pricing.NewSungVlach(s, pricingOpts...),
	}
	return svc
}

// Divide computes the assignment and prices it with the chosen method.
func (s *Service) Divide(ctx context.Context, p *problem.Problem, method pricing.Method) (*Result, error) {
	start := s.clock()
	res, err := s.divide(ctx, p, method)
	elapsed := s.clock().Sub(start)

	outcome := Classify(err)
	s.recorder.ObserveDivision(string(method), outcome, elapsed)
	if err != nil {
		s.logger.Warn("division failed",
			zap.String("method", string(method)),
			zap.String("outcome", outcome),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	res.Duration = elapsed
	if res.Trace != nil {
		s.recorder.ObserveDescentRounds(len(res.Trace.Rounds))
	}
	s.logger.Info("division completed",
		zap.String("method", string(method)),
		zap.Int("resources", len(res.Allocation.Rows)),
		zap.Float64("maxsum", res.Assignment.Maxsum),
		zap.Float64("total", res.Allocation.Total),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

func (s *Service) divide(ctx context.Context, p *problem.Problem, method pricing.Method) (*Result, error) {
	strategy, ok := s.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w %q", pricing.ErrUnknownMethod, method)
	}

	assignment, err := s.optimizer.Optimize(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("maxsum assignment: %w", err)
	}

	outcome, err := strategy.Price(ctx, p, assignment)
	if err != nil {
		return nil, fmt.Errorf("%s pricing: %w", method, err)
	}

	return &Result{
		Method:     method,
		Assignment: assignment,
		Prices:     outcome.Prices,
		Allocation: Assemble(p, assignment, outcome.Prices),
		Trace:      outcome.Trace,
	}, nil
}
