package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveStep(t *testing.T) {
	m := NewMetrics()
	m.ObserveStep(3*time.Millisecond, map[string]time.Duration{"p2g": time.Millisecond, "g2p": time.Millisecond})
	m.ObserveStats(StepStats{Particles: 12, TotalMass: 2.5, KineticEnergy: 1})

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, name := range []string{
		"mpm_steps_total",
		"mpm_step_duration_seconds",
		"mpm_stage_duration_seconds",
		"mpm_particles",
		"mpm_kinetic_energy",
		"mpm_total_mass",
	} {
		assert.True(t, names[name], "missing metric %s", name)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveStats(StepStats{Particles: 42})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mpm_particles 42"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStep(time.Millisecond, nil)
	m.ObserveStats(StepStats{})
}
