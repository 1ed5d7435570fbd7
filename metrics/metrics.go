// Package metrics holds the Prometheus collectors shared by the store, the
// sync layer and the HTTP handlers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSubscriptions counts open live subscriptions by kind (owner, public, doc).
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flashcardhero_active_subscriptions",
		Help: "Open live collection subscriptions by kind",
	}, []string{"kind"})

	// SnapshotsDelivered counts snapshot deliveries by kind.
	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashcardhero_snapshots_delivered_total",
		Help: "Snapshots delivered to subscribers by kind",
	}, []string{"kind"})

	// SubscriptionErrors counts asynchronous subscription failures by kind.
	SubscriptionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashcardhero_subscription_errors_total",
		Help: "Asynchronous subscription failures by kind",
	}, []string{"kind"})

	// StoreMutations counts create/update/delete calls by operation and result.
	StoreMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashcardhero_store_mutations_total",
		Help: "Collection store mutations by operation and result",
	}, []string{"operation", "result"})

	// GenerationRequests counts generate/improve calls by operation and result.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashcardhero_generation_requests_total",
		Help: "Generation function calls by operation and result",
	}, []string{"operation", "result"})
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
