// Package metrics exposes Prometheus collectors for ledger activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_transactions_applied_total",
		Help: "Ledger transactions durably applied, by transaction type.",
	}, []string{"type"})

	ApplyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_apply_failures_total",
		Help: "Rejected or failed apply calls, by error kind.",
	}, []string{"reason"})

	ApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_ledger_apply_duration_seconds",
		Help:    "Wall time of the atomic apply unit of work.",
		Buckets: prometheus.DefBuckets,
	})
)
