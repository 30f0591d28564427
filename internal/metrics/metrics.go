// Package metrics provides prometheus collectors for watermark applications and live sessions
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	KindImage = "image"
	KindText  = "text"

	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry      *prometheus.Registry
	applyTotal    *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	sessionsLive  prometheus.Gauge
}

// New registers the app collectors plus Go runtime and process collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		applyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watermarkit_apply_total",
			Help: "Watermark applications by kind and outcome.",
		}, []string{"kind", "outcome"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watermarkit_apply_duration_seconds",
			Help:    "Time spent compositing one watermark.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
		sessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watermarkit_sessions_live",
			Help: "Editing sessions currently held in memory.",
		}),
	}

	reg.MustRegister(
		m.applyTotal,
		m.applyDuration,
		m.sessionsLive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveApply records one apply attempt that started at start.
func (m *Metrics) ObserveApply(kind, outcome string, start time.Time) {
	m.applyTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeOK {
		m.applyDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) SessionOpened() {
	m.sessionsLive.Inc()
}

func (m *Metrics) SessionClosed() {
	m.sessionsLive.Dec()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
