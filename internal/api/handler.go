package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/division"
	"github.com/eugenenazirov/fair-rent/internal/ingest"
	"github.com/eugenenazirov/fair-rent/internal/maxsum"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	maxBodyBytes         = 1 << 20
	defaultSolverTimeout = 10 * time.Second
)

// Error codes returned in the "code" field of error responses.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeValidation            = "validation_error"
	CodeInfeasibleAssignment  = "infeasible_assignment"
	CodeInsufficientValue     = "insufficient_value"
	CodePricingNontermination = "pricing_nontermination"
	CodeEnvyInfeasible        = "envy_infeasible"
	CodeSolverTimeout         = "solver_timeout"
	CodeNotFound              = "not_found"
	CodeRateLimited           = "rate_limited"
	CodeInternal              = "internal_error"
)

// Divider runs a division.
type Divider interface {
	Divide(ctx context.Context, p *problem.Problem, method pricing.Method) (*division.Result, error)
}

// StoredGauge is told how many results the store holds after each save.
type StoredGauge interface {
	SetStored(n int)
}

// Handler wires the division service and storage into HTTP handlers.
type Handler struct {
	divider Divider
	storage storage.Storage

	defaultMethod pricing.Method
	solverTimeout time.Duration
	stored        StoredGauge
	logger        *zap.Logger
	clock         func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithDefaultMethod sets the method used when a request names none.
func WithDefaultMethod(m pricing.Method) HandlerOption {
	return func(h *Handler) {
		if m != "" {
			h.defaultMethod = m
		}
	}
}

// WithSolverTimeout bounds the time spent on one division request.
func WithSolverTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.solverTimeout = d
		}
	}
}

// WithStoredGauge reports the store size after each save.
func WithStoredGauge(g StoredGauge) HandlerOption {
	return func(h *Handler) {
		h.stored = g
	}
}

// WithHandlerLogger sets the logger used for failed requests.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(divider Divider, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		divider:       divider,
		storage:       store,
		defaultMethod: pricing.SungVlachMethod,
		solverTimeout: defaultSolverTimeout,
		logger:        zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMethods(w http.ResponseWriter, r *http.Request) {
	_ = r
	methods := pricing.Methods()
	resp := methodsResponse{
		Methods: make([]string, 0, len(methods)),
		Default: string(h.defaultMethod),
	}
	for _, m := range methods {
		resp.Methods = append(resp.Methods, string(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateDivision(w http.ResponseWriter, r *http.Request) {
	var doc ingest.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if err := doc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	method := h.defaultMethod
	if doc.Method != "" {
		m, err := pricing.ParseMethod(doc.Method)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Unknown method", err.Error())
			return
		}
		method = m
	}

	p, err := problem.New(doc.Input())
	if err != nil {
		h.writeDivisionError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.solverTimeout)
	defer cancel()

	result, err := h.divider.Divide(ctx, p, method)
	if err != nil {
		h.writeDivisionError(w, r, err)
		return
	}

	rec, err := h.storage.Save(storage.Record{HouseCost: p.HouseCost(), Result: result})
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if h.stored != nil {
		h.stored.SetStored(h.storage.Len())
	}

	w.Header().Set("Location", "/api/divisions/"+rec.ID)
	writeJSON(w, http.StatusCreated, newDivisionResponse(rec))
}

func (h *Handler) handleGetDivision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.storage.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "Division not found", fmt.Sprintf("no division with id %q", id))
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDivisionResponse(rec))
}

func (h *Handler) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	_ = r
	records, err := h.storage.List()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	resp := listResponse{Divisions: make([]summaryResponse, 0, len(records))}
	for _, rec := range records {
		resp.Divisions = append(resp.Divisions, newSummaryResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeDivisionError(w http.ResponseWriter, r *http.Request, err error) {
	switch division.Classify(err) {
	case division.OutcomeInvalid:
		var verr *problem.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:    "Invalid problem",
				Code:     CodeValidation,
				Details:  verr.Error(),
				Problems: verr.Problems,
			})
			return
		}
		writeError(w, http.StatusBadRequest, CodeValidation, "Invalid problem", err.Error())
	case division.OutcomeInfeasible:
		writeError(w, http.StatusUnprocessableEntity, CodeInfeasibleAssignment, "No feasible assignment", err.Error(),
			"Check that every unit has a resource it fits in and that capacities allow a full assignment")
	case division.OutcomeInsufficientValue:
		suggestion := "Bids must add up to at least the house cost"
		var ierr *maxsum.InsufficientValueError
		if errors.As(err, &ierr) {
			suggestion = fmt.Sprintf("Raise the winning bids by at least %.2f in total", ierr.Shortfall())
		}
		writeError(w, http.StatusUnprocessableEntity, CodeInsufficientValue, "Bids below house cost", err.Error(), suggestion)
	case division.OutcomeNontermination:
		writeError(w, http.StatusUnprocessableEntity, CodePricingNontermination, "Descent did not terminate", err.Error(),
			"Try the sung-vlach method")
	case division.OutcomeEnvyInfeasible:
		writeError(w, http.StatusUnprocessableEntity, CodeEnvyInfeasible, "No envy-free prices", err.Error())
	case division.OutcomeTimeout:
		writeError(w, http.StatusGatewayTimeout, CodeSolverTimeout, "Solver timed out", err.Error())
	default:
		h.logger.Error("division failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type methodsResponse struct {
	Methods []string `json:"methods"`
	Default string   `json:"default"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Details    string   `json:"details,omitempty"`
	Problems   []string `json:"problems,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal error", err.Error())
}
