package integration

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/fair-rent/internal/api"
	"github.com/eugenenazirov/fair-rent/internal/division"
	"github.com/eugenenazirov/fair-rent/internal/solver"
	"github.com/eugenenazirov/fair-rent/internal/storage"
)

type allocationRow struct {
	Resource string   `json:"resource"`
	Unit     string   `json:"unit"`
	Members  []string `json:"members"`
	Bid      float64  `json:"bid"`
	Price    float64  `json:"price"`
}

type divisionBody struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Maxsum     float64         `json:"maxsum"`
	Total      float64         `json:"total"`
	Allocation []allocationRow `json:"allocation"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	service := division.New(solver.NewSimplex(), division.WithLogger(logger))
	handler := api.NewHandler(service, storage.NewMemoryStorage(), api.WithHandlerLogger(logger))
	return api.NewRouter(handler, logger, api.WithRateLimit(0, 0))
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload, err := json.Marshal(map[string]any{
		"houseCost": 3000,
		"method":    "sung-vlach",
		"resources": []map[string]any{
			{"id": "suite", "capacity": 2},
			{"id": "north", "capacity": 1},
			{"id": "south", "capacity": 1},
		},
		"units": []map[string]any{
			{"id": "couple", "members": []string{"C1", "C2"}},
			{"id": "A"},
			{"id": "B"},
		},
		"bids": map[string]map[string]float64{
			"couple": {"suite": 1800},
			"A":      {"suite": 950, "north": 700, "south": 600},
			"B":      {"suite": 850, "north": 600, "south": 700},
		},
	})
	require.NoError(t, err)

	rec = performRequest(t, handler, http.MethodPost, "/api/divisions", payload, jsonHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created divisionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, 3200.0, created.Maxsum)
	assert.InDelta(t, 3000.0, created.Total, 1e-6)
	require.Len(t, created.Allocation, 3)
	assert.Equal(t, "couple", created.Allocation[0].Unit)
	assert.Equal(t, []string{"C1", "C2"}, created.Allocation[0].Members)
	assert.Equal(t, "A", created.Allocation[1].Unit)
	assert.Equal(t, "B", created.Allocation[2].Unit)

	// No single envies another single's room at these prices.
	north, south := created.Allocation[1], created.Allocation[2]
	assert.LessOrEqual(t, north.Price-south.Price, 700.0-600.0+1e-6)
	assert.LessOrEqual(t, south.Price-north.Price, 700.0-600.0+1e-6)
	for _, row := range created.Allocation {
		assert.False(t, math.Signbit(row.Price), "negative price for %s", row.Resource)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/divisions/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched divisionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	assert.Equal(t, created, fetched)

	rec = performRequest(t, handler, http.MethodGet, "/api/divisions/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegrationInsufficientValue(t *testing.T) {
	handler := newRouter(t)

	payload := []byte(`{
		"houseCost": 2100,
		"method": "brams-kilgour",
		"resources": [{"id": "r1", "capacity": 1}, {"id": "r2", "capacity": 1}],
		"bids": {"A": {"r1": 1000, "r2": 900}, "B": {"r1": 950, "r2": 1000}}
	}`)
	rec := performRequest(t, handler, http.MethodPost, "/api/divisions", payload, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, api.CodeInsufficientValue, body.Code)
}
