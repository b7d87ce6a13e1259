package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiq_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiq_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiq_quota_decisions_total",
			Help: "Total number of quota gate decisions.",
		},
		[]string{"outcome"},
	)

	QuotaStoreFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiq_quota_store_failures_total",
			Help: "Total number of quota store failures resolved by the fallback policy.",
		},
	)

	QuotaTxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiq_quota_tx_retries_total",
			Help: "Total number of quota store transactions retried on contention.",
		},
	)

	InferencesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiq_inferences_total",
			Help: "Total number of completed inferences.",
		},
		[]string{"label"},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentiq_inference_duration_seconds",
			Help:    "Classifier latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		QuotaDecisionsTotal,
		QuotaStoreFailures,
		QuotaTxRetries,
		InferencesTotal,
		InferenceDuration,
	)
}
