package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tuition_notify"

var (
	// Dispatches counts dispatch attempts by notification type and outcome.
	// Outcome is delivered, in_app_only or the error kind that stopped delivery.
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Notification dispatches by type and outcome.",
	}, []string{"type", "outcome"})

	PushTokensPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_tokens_pruned_total",
		Help:      "Push tokens removed after the channel rejected them.",
	})

	DedupeSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dedupe_suppressed_total",
		Help:      "Notifications suppressed as duplicates.",
	}, []string{"type"})

	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_errors_total",
		Help:      "Errors logged and swallowed, by kind.",
	}, []string{"kind"})

	SweepRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_records_total",
		Help:      "Records visited by timer sweeps.",
	}, []string{"sweep"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
