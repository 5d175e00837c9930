// Package metrics exposes Prometheus counters for the reservation core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts reservation state changes by target status.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Reservation state transitions by target status.",
	}, []string{"status"})

	// Rejections counts refused operations by rejection code.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_rejections_total",
		Help: "Refused reservation operations by rejection code.",
	}, []string{"code"})

	// SweepRuns counts sweep executions by sweep name.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Background sweep executions by sweep name.",
	}, []string{"sweep"})

	// SweepRowFailures counts per-row sweep failures; a single bad row never
	// aborts a sweep, it lands here instead.
	SweepRowFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_row_failures_total",
		Help: "Rows a sweep failed to process, by sweep name.",
	}, []string{"sweep"})

	// CreditAdjustments counts ledger entries by reason.
	CreditAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_adjustments_total",
		Help: "Credit score adjustments by reason.",
	}, []string{"reason"})
)
