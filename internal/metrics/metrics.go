// Package metrics exposes Prometheus metrics for listen cycles and the
// volume monitor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
)

const namespace = "dictation"

// Metrics contains all Prometheus metrics for the dictation tool.
type Metrics struct {
	registry *prometheus.Registry

	// Listen cycle metrics
	ListenCycles       *prometheus.CounterVec
	ListenDuration     prometheus.Histogram
	RecognizeDuration  prometheus.Histogram
	ListenBusyRejected prometheus.Counter

	// Volume monitor metrics
	MonitorRestarts prometheus.Counter

	// WebSocket metrics
	WSClients prometheus.Gauge
}

// New creates all metrics on a private registry, plus a volume gauge backed by volume.
func New(volume func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		ListenCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listen_cycles_total",
			Help:      "Total number of listen cycles by outcome",
		}, []string{"outcome"}),
		ListenDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listen_cycle_duration_seconds",
			Help:      "Wall-clock duration of a listen cycle",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 7.5, 10, 15, 30},
		}),
		RecognizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognize_duration_seconds",
			Help:      "Latency of speech recognition requests",
			Buckets:   prometheus.DefBuckets,
		}),
		ListenBusyRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listen_busy_rejected_total",
			Help:      "Listen requests rejected because a cycle was running",
		}),
		MonitorRestarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_restarts_total",
			Help:      "Times the volume monitor reopened a dead capture stream",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Current number of connected WebSocket clients",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "volume",
		Help:      "Current microphone volume as shown by the orb",
	}, volume)

	// Pre-create outcome series so they report 0 before the first cycle.
	for _, o := range recognizer.Outcomes {
		m.ListenCycles.WithLabelValues(string(o))
	}

	return m
}

// ObserveCycle records a finished listen cycle.
func (m *Metrics) ObserveCycle(result recognizer.Result, elapsed time.Duration) {
	m.ListenCycles.WithLabelValues(string(result.Outcome)).Inc()
	m.ListenDuration.Observe(elapsed.Seconds())
}

// ObserveRecognize records the latency of one recognition request.
func (m *Metrics) ObserveRecognize(elapsed time.Duration) {
	m.RecognizeDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
