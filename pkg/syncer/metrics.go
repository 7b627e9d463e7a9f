package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcilePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slacktui_reconcile_passes_total",
		Help: "Reconciliation passes by outcome (applied, empty, suppressed, error).",
	}, []string{"outcome"})

	patchesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slacktui_reconcile_patches_total",
		Help: "Patch operations emitted by reconciliation passes.",
	})
)
