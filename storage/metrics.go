package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onerecord",
		Subsystem: "storage",
		Name:      "ops_total",
		Help:      "Number of storage operations by backend, operation, and result",
	}, []string{"backend", "op", "result"})
	mCleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onerecord",
		Subsystem: "storage",
		Name:      "cleanup_total",
		Help:      "Number of times cleanup has run",
	}, []string{"backend", "result"})
)

func observe(b Backend, op string, err error) {
	mOps.WithLabelValues(string(b), op, result(err)).Inc()
}
