package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for gripgate.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	HeldResponses   *prometheus.CounterVec
	WSEventsIn      prometheus.Counter
	WSEventsOut     prometheus.Counter
	PublishesTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gripgate",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gripgate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		HeldResponses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gripgate",
				Name:      "held_responses_total",
				Help:      "Responses handed to the proxy with a hold instruction",
			},
			[]string{"mode"}, // mode=response/stream
		),
		WSEventsIn: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "gripgate",
				Name:      "ws_events_in_total",
				Help:      "WebSocket-over-HTTP events received from the proxy",
			},
		),
		WSEventsOut: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "gripgate",
				Name:      "ws_events_out_total",
				Help:      "WebSocket-over-HTTP events sent to the proxy",
			},
		),
		PublishesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gripgate",
				Name:      "publishes_total",
				Help:      "Messages published to proxy control endpoints",
			},
			[]string{"result"}, // result=ok/error
		),
	}
}
