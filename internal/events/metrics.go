// internal/events/metrics.go
package events

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts emission outcomes.
type Metrics struct {
	published *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewMetrics creates emission collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamcart",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Order events handed to the sink, by outcome",
		}, []string{"topic", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamcart",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Time from dispatch to sink acknowledgment",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.published); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.published = existing
			}
		}
	}
	if err := reg.Register(m.latency); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				m.latency = existing
			}
		}
	}
	return m
}

func (m *Metrics) observe(topic string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.published.WithLabelValues(topic, result).Inc()
	m.latency.WithLabelValues(topic).Observe(elapsed.Seconds())
}
