package build

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records compile outcomes on a private registry.
type Metrics struct {
	registry    *prom.Registry
	compiles    *prom.CounterVec
	diagnostics *prom.CounterVec
	duration    prom.Histogram
	lastCompile prom.Gauge

	mutex    sync.RWMutex
	snapshot MetricsSnapshot
}

// MetricsSnapshot is a point-in-time copy of the counters for display.
type MetricsSnapshot struct {
	TotalCompiles  int64
	Done           int64
	Failed         int64
	LastState      State
	LastDuration   time.Duration
	LastFinishedAt time.Time
}

// NewMetrics creates and registers the compile metrics. A nil registry gets
// a fresh one.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		compiles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bundlekit",
			Name:      "compiles_total",
			Help:      "Compilations by final state",
		}, []string{"state"}),
		diagnostics: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bundlekit",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported by the bundler",
		}, []string{"kind"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "bundlekit",
			Name:      "compile_duration_seconds",
			Help:      "Wall-clock duration of compilations",
			Buckets:   prom.DefBuckets,
		}),
		lastCompile: prom.NewGauge(prom.GaugeOpts{
			Namespace: "bundlekit",
			Name:      "last_compile_timestamp_seconds",
			Help:      "Unix time the last compilation finished",
		}),
	}
	reg.MustRegister(m.compiles, m.diagnostics, m.duration, m.lastCompile)
	return m
}

// Record records one finished compilation.
func (m *Metrics) Record(o Outcome) {
	if m == nil {
		return
	}
	m.compiles.WithLabelValues(o.State.String()).Inc()
	m.duration.Observe(o.Duration.Seconds())
	m.lastCompile.Set(float64(o.FinishedAt.Unix()))
	if o.Stats != nil {
		m.diagnostics.WithLabelValues("error").Add(float64(len(o.Stats.Errors)))
		m.diagnostics.WithLabelValues("warning").Add(float64(len(o.Stats.Warnings)))
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.snapshot.TotalCompiles++
	if o.State == StateFailed {
		m.snapshot.Failed++
	} else {
		m.snapshot.Done++
	}
	m.snapshot.LastState = o.State
	m.snapshot.LastDuration = o.Duration
	m.snapshot.LastFinishedAt = o.FinishedAt
}

// Snapshot returns a copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.snapshot
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
