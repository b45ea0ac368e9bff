package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// reconcileOutcomes считает результаты сверки по видам.
var reconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "billing_reconcile_outcomes_total",
	Help: "Number of reconciled payment events by outcome.",
}, []string{"outcome"})
