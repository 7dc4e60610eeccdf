package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mpm"

// Metrics exposes simulation progress to Prometheus. Each instance owns its
// registry so several worlds (or tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	steps         prometheus.Counter
	stepDuration  prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	particles     prometheus.Gauge
	kinetic       prometheus.Gauge
	totalMass     prometheus.Gauge
}

// NewMetrics registers the simulation metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Simulation steps completed",
		}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time per simulation step",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 2, 16),
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 2, 16),
		}, []string{"stage"}),
		particles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "particles",
			Help:      "Particles in the world",
		}),
		kinetic: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "kinetic_energy",
			Help:      "Total particle kinetic energy",
		}),
		totalMass: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "total_mass",
			Help:      "Total particle mass",
		}),
	}
}

// ObserveStep records one step and its per-stage durations.
func (m *Metrics) ObserveStep(d time.Duration, stages map[string]time.Duration) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.stepDuration.Observe(d.Seconds())
	for id, sd := range stages {
		m.stageDuration.WithLabelValues(id).Observe(sd.Seconds())
	}
}

// ObserveStats updates the state gauges.
func (m *Metrics) ObserveStats(s StepStats) {
	if m == nil {
		return
	}
	m.particles.Set(float64(s.Particles))
	m.kinetic.Set(s.KineticEnergy)
	m.totalMass.Set(s.TotalMass)
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
