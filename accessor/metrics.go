package accessor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeFound   = "found"
	outcomeCreated = "created"
	outcomeFailed  = "failed"
)

var mHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "onerecord",
	Subsystem: "accessor",
	Name:      "handled_total",
	Help:      "Number of get-or-create calls by outcome",
}, []string{"outcome"})
