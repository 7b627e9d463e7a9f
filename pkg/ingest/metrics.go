package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slacktui_ingest_events_total",
		Help: "Push events applied to the cache store by kind.",
	}, []string{"kind"})

	queueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slacktui_ingest_dropped_total",
		Help: "Push events dropped because the ingest queue was full.",
	})
)
