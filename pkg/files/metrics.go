package files

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var attachmentFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slacktui_attachment_requests_total",
	Help: "Attachment cache lookups by outcome (hit, fetched, miss).",
}, []string{"result"})
