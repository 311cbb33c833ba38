// Package metrics exposes recorder counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wavrec"

// Metrics holds the recorder's collectors on a private registry so tests and
// multiple recorders in one process don't collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	Ticks      prometheus.Counter
	Flushes    prometheus.Counter
	PCMBytes   prometheus.Counter
	SampleMin  prometheus.Gauge
	SampleMax  prometheus.Gauge
	AppendErrs prometheus.Counter
}

// New registers the collectors. dropped reports ticks lost to a full event
// queue; it may be nil.
func New(dropped func() uint64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Sampling ticks processed by the controller.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Buffer flushes appended to the WAV file.",
		}),
		PCMBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pcm_bytes_total",
			Help:      "PCM payload bytes appended to the WAV file.",
		}),
		SampleMin: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_min",
			Help:      "Lowest raw ADC reading this session.",
		}),
		SampleMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_max",
			Help:      "Highest raw ADC reading this session.",
		}),
		AppendErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "append_errors_total",
			Help:      "WAV append failures.",
		}),
	}

	m.registry.MustRegister(m.Ticks, m.Flushes, m.PCMBytes, m.SampleMin, m.SampleMax, m.AppendErrs)
	if dropped != nil {
		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Ticks discarded because the event queue was full.",
		}, func() float64 { return float64(dropped()) }))
	}
	m.registry.MustRegister(prometheus.NewGoCollector())
	return m
}

// Flushed records one append of n samples.
func (m *Metrics) Flushed(n int) {
	if m == nil {
		return
	}
	m.Flushes.Inc()
	m.PCMBytes.Add(float64(n * 2))
}

// Tick records one processed tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

// Bounds records the current min/max.
func (m *Metrics) Bounds(lo, hi uint32) {
	if m == nil {
		return
	}
	m.SampleMin.Set(float64(lo))
	m.SampleMax.Set(float64(hi))
}

// AppendFailed records a WAV write failure.
func (m *Metrics) AppendFailed() {
	if m == nil {
		return
	}
	m.AppendErrs.Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
