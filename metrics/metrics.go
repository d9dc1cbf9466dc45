// Package metrics exposes Prometheus counters for ledger, completion and
// commission activity on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studio_ledger"

var (
	// PaymentsRecorded counts ledger entries by method and kind ("receipt" or "correction")
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_recorded_total",
		Help:      "Ledger entries recorded, by payment method and kind.",
	}, []string{"method", "kind"})

	// CompletionsMarked counts completion acknowledgements by role and whether they changed anything
	CompletionsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_marked_total",
		Help:      "Item completion acknowledgements, by role and outcome.",
	}, []string{"role", "outcome"})

	// CommissionComputations counts commission summaries by cache outcome
	CommissionComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commission_computations_total",
		Help:      "Commission summaries served, by cache result.",
	}, []string{"cache"})

	// DailyReports counts daily report runs by trigger and delivery outcome
	DailyReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "daily_reports_total",
		Help:      "Daily report runs, by trigger and delivery outcome.",
	}, []string{"trigger", "outcome"})
)

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
