package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "scenelink"
	metricsSubsystem = "server"
)

// Metrics aggregates the server's Prometheus collectors.
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec
	FenceViolations  prometheus.Counter
	UpdatesApplied   prometheus.Counter
	RequestsResolved *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	BytesReceived    prometheus.Counter
	BytesSent        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_received_total",
			Help:      "Messages received, by kind.",
		}, []string{"kind"}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_sent_total",
			Help:      "Messages sent, by kind.",
		}, []string{"kind"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "decode_errors_total",
			Help:      "Messages that failed to decode, by reason.",
		}, []string{"reason"}),
		FenceViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fence_violations_total",
			Help:      "Fence sequencing violations (nested begin, stray end, loose mutation).",
		}),
		UpdatesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "scene_updates_applied_total",
			Help:      "Atomic scene updates applied to the store.",
		}),
		RequestsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_resolved_total",
			Help:      "Request messages resolved, by kind.",
		}, []string{"kind"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "active_sessions",
			Help:      "Currently connected sessions.",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_received_total",
			Help:      "Raw WebSocket payload bytes received.",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_sent_total",
			Help:      "Raw WebSocket payload bytes sent.",
		}),
	}
}
