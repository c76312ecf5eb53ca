package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var mRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "onerecord",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Time spent handling requests on the main listener",
	Buckets:   prometheus.DefBuckets,
}, []string{"code", "method"})

func instrument(h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(mRequestDuration, h)
}
