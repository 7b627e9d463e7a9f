package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slacktui_store_writes_total",
	Help: "Cache store writes by entity kind.",
}, []string{"entity"})
