package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocigw_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocigw_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Credential provider
	CredentialRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_credential_refreshes_total",
			Help: "Total number of upstream credential refreshes by outcome",
		},
		[]string{"source", "status"},
	)

	CredentialRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocigw_credential_refresh_duration_seconds",
			Help:    "Upstream credential refresh latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	CredentialCoalescedWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocigw_credential_coalesced_waits_total",
			Help: "Acquisitions that joined a refresh already in flight",
		},
	)

	// Upstream
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_upstream_requests_total",
			Help: "Total number of OCI Generative AI requests",
		},
		[]string{"model", "api_format", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocigw_upstream_request_duration_seconds",
			Help:    "Time until the upstream answered with headers",
			Buckets: latencyBuckets,
		},
		[]string{"model"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_upstream_errors_total",
			Help: "Total number of upstream failures by error kind",
		},
		[]string{"model", "kind"},
	)

	UpstreamRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_upstream_retry_attempts_total",
			Help: "Total number of upstream transport retries",
		},
		[]string{"outcome"},
	)

	// Streaming
	StreamChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_stream_chunks_total",
			Help: "Total number of chunks relayed downstream",
		},
		[]string{"model"},
	)

	StreamOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_stream_outcomes_total",
			Help: "Finished streams by outcome",
		},
		[]string{"model", "outcome"},
	)

	StreamTimeToFirstChunk = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocigw_stream_time_to_first_chunk_seconds",
			Help:    "Latency until the first downstream chunk",
			Buckets: latencyBuckets,
		},
		[]string{"model"},
	)

	// Mapping
	ClampedParamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_clamped_params_total",
			Help: "Sampling parameters clamped into the upstream range",
		},
		[]string{"param"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_tokens_total",
			Help: "Tokens reported by the upstream",
		},
		[]string{"model", "type"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocigw_rate_limited_total",
			Help: "Requests rejected by the local rate limiter",
		},
		[]string{"path"},
	)
)

// StatusClass buckets an HTTP status as 2xx, 4xx and so on. Zero means no response.
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
