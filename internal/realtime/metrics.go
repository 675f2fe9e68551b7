package realtime

import (
	"github.com/outager/outager/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Number of connected realtime subscribers",
		},
	)

	activeGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "realtime",
			Name:      "groups",
			Help:      "Number of organizations with at least one subscriber",
		},
	)

	publishedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "realtime",
			Name:      "published_total",
			Help:      "Total events published by type",
		},
		[]string{"event"},
	)

	deliveredMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "realtime",
			Name:      "delivered_total",
			Help:      "Total frames queued to subscribers",
		},
	)

	droppedSubscribers = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "realtime",
			Name:      "slow_subscribers_dropped_total",
			Help:      "Subscribers disconnected because their queue was full",
		},
	)
)
