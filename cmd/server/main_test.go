package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/fair-rent/internal/application"
)

func TestBuildRootHandler(t *testing.T) {
	var apiPaths []string
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiPaths = append(apiPaths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler, err := application.BuildRootHandler(apiHandler, metricsHandler)
	require.NoError(t, err)

	serve := func(path string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	t.Run("serves metrics", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve("/metrics"))
	})

	t.Run("returns not found for unknown paths", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve("/unknown"))
	})

	t.Run("forwards api traffic", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, serve("/api/health"))
		assert.Equal(t, []string{"/api/health"}, apiPaths)
	})
}

func TestBuildOverrides(t *testing.T) {
	t.Run("unset flags leave overrides nil", func(t *testing.T) {
		o := buildOverrides("", "", "", "", 0, -1, -1)
		assert.Empty(t, o.ConfigFile)
		assert.Nil(t, o.Port)
		assert.Nil(t, o.LogLevel)
		assert.Nil(t, o.DefaultMethod)
		assert.Nil(t, o.SolverTimeout)
		assert.Nil(t, o.RateLimitRPS)
		assert.Nil(t, o.RateLimitBurst)
	})

	t.Run("set flags are carried", func(t *testing.T) {
		o := buildOverrides("cfg.yaml", "9000", "debug", "bk", 2*time.Second, 0, 5)
		assert.Equal(t, "cfg.yaml", o.ConfigFile)
		require.NotNil(t, o.Port)
		assert.Equal(t, "9000", *o.Port)
		require.NotNil(t, o.LogLevel)
		assert.Equal(t, "debug", *o.LogLevel)
		require.NotNil(t, o.DefaultMethod)
		assert.Equal(t, "bk", *o.DefaultMethod)
		require.NotNil(t, o.SolverTimeout)
		assert.Equal(t, 2*time.Second, *o.SolverTimeout)
		require.NotNil(t, o.RateLimitRPS)
		assert.Zero(t, *o.RateLimitRPS)
		require.NotNil(t, o.RateLimitBurst)
		assert.Equal(t, 5, *o.RateLimitBurst)
	})
}
