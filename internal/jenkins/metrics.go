package jenkins

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts Jenkins API requests by method and outcome
	// (success, api_error, transport_error).
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenkins_requests_total",
		Help: "Total Jenkins API requests issued",
	}, []string{"method", "outcome"})

	// requestRetries counts retry events by kind: "transport" for
	// backoff retries, "crumb" for the one-shot 403 refresh.
	requestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenkins_request_retries_total",
		Help: "Total Jenkins request retries",
	}, []string{"kind"})

	// requestDuration tracks end-to-end request latency including
	// retries and backoff.
	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jenkins_request_duration_seconds",
		Help:    "Jenkins API request duration",
		Buckets: prometheus.DefBuckets,
	})
)
