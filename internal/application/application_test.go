package application

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/fair-rent/internal/config"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
)

func TestNewInitializesDependencies(t *testing.T) {
	app, err := New(baseTestConfig(":8085"), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotNil(t, app.server)
	assert.NotNil(t, app.router)
	assert.NotNil(t, app.handler)
	assert.NotNil(t, app.service)
	assert.Zero(t, app.storage.Len())
	assert.Same(t, app.server, app.Server())
	assert.Equal(t, ":8085", app.server.Addr)
}

func TestAppServesDivisionsAndMetrics(t *testing.T) {
	app, err := New(baseTestConfig(":0"), zaptest.NewLogger(t))
	require.NoError(t, err)

	body := `{
		"houseCost": 1900,
		"method": "brams-kilgour",
		"resources": [{"id": "r1", "capacity": 1}, {"id": "r2", "capacity": 1}],
		"bids": {"A": {"r1": 1000, "r2": 900}, "B": {"r1": 950, "r2": 1000}}
	}`
	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/divisions", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	for _, want := range []string{
		`fairrent_divisions_total{method="brams-kilgour",outcome="ok"} 1`,
		"fairrent_stored_divisions 1",
		"fairrent_descent_rounds_count 1",
		"go_goroutines",
	} {
		assert.Contains(t, string(out), want)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	assert.Equal(t, ":9090", server.Addr)
	assert.Equal(t, handler, server.Handler)
	assert.Equal(t, cfg.ReadHeaderTimeout, server.ReadHeaderTimeout)
	assert.Equal(t, cfg.WriteTimeout, server.WriteTimeout)
	assert.Equal(t, cfg.IdleTimeout, server.IdleTimeout)
}

func TestBuildRootHandlerRequiresAPI(t *testing.T) {
	_, err := BuildRootHandler(nil, nil)
	require.Error(t, err)
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		LogLevel:             "info",
		DefaultMethod:        pricing.SungVlachMethod,
		SolverTimeout:        5 * time.Second,
		SolverMaxNodes:       1000,
		SolverTolerance:      1e-10,
		MaxDescentRounds:     100,
		MaxStoredDivisions:   10,
	}
}
