// Package metrics holds the prometheus collectors for the progress engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerDeltas counts committed ledger adjustments by origin.
	LedgerDeltas = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goaltrack_ledger_deltas_total",
		Help: "Committed accumulated-time adjustments by origin.",
	}, []string{"origin"})

	// LedgerMinutes sums the absolute minutes moved by committed deltas.
	LedgerMinutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goaltrack_ledger_minutes_total",
		Help: "Absolute minutes applied to goals through the ledger.",
	})

	// GoalTransitions counts completion flips.
	GoalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goaltrack_goal_transitions_total",
		Help: "Goal completion transitions by kind (completed, reopened).",
	}, []string{"kind"})

	// ReconcileRepairs counts goals whose stored total had drifted from the journal.
	ReconcileRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goaltrack_reconcile_repairs_total",
		Help: "Goals resynchronised by the reconciliation job.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
