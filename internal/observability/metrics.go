package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	MessagesScanned    prometheus.Counter
	Quarantines        *prometheus.CounterVec
	QuarantineFailures *prometheus.CounterVec
	PurgeDeleted       prometheus.Counter
	PurgeChannelErrors *prometheus.CounterVec
	TrackedUsers       prometheus.Gauge
	SweepRuns          prometheus.Counter
	SweepEvicted       prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		MessagesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_scanned_total",
			Help:      "Guild messages run through the spam pipeline.",
		}),
		Quarantines: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quarantines_total",
			Help:      "Completed quarantines by trigger source.",
		}, []string{"source"}),
		QuarantineFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quarantine_failures_total",
			Help:      "Quarantine attempts that aborted, by stage.",
		}, []string{"stage"}),
		PurgeDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purge_deleted_total",
			Help:      "Messages deleted by quarantine purges.",
		}),
		PurgeChannelErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purge_channel_errors_total",
			Help:      "Per-channel purge failures by kind.",
		}, []string{"kind"}),
		TrackedUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_users",
			Help:      "Users with at least one record in the message history store.",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Completed retention sweep cycles.",
		}),
		SweepEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_evicted_total",
			Help:      "History records evicted by retention sweeps.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
