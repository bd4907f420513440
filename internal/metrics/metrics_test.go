package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDivision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDivision("sung-vlach", "ok", 20*time.Millisecond)
	m.ObserveDivision("sung-vlach", "ok", 30*time.Millisecond)
	m.ObserveDivision("brams-kilgour", "insufficient_value", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.divisions.WithLabelValues("sung-vlach", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.divisions.WithLabelValues("brams-kilgour", "insufficient_value")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestStoredGaugeAndRounds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetStored(3)
	m.ObserveDescentRounds(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.storedDivision))

	expected := `
# HELP fairrent_stored_divisions Division results currently held in storage.
# TYPE fairrent_stored_divisions gauge
fairrent_stored_divisions 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fairrent_stored_divisions"))
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
