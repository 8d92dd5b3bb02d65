package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whalescan/pkg/errors"
)

var (
	// Explorer API metrics
	ExplorerAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalescan_explorer_api_calls_total",
			Help: "Total number of explorer API calls",
		},
		[]string{"chain", "action", "status"}, // status: success|error|rate_limited
	)

	ExplorerAPIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalescan_explorer_api_errors_total",
			Help: "Total number of explorer API errors by kind",
		},
		[]string{"chain", "kind"}, // kind: invalid_request|unavailable|parse|rate_limited|other
	)

	ExplorerAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalescan_explorer_api_latency_seconds",
			Help:    "Explorer API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"chain", "action"},
	)

	RateLimiterWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalescan_rate_limiter_wait_seconds",
			Help:    "Time spent waiting for a per-chain request slot",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"chain"},
	)

	// Analysis metrics
	AnalysesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalescan_analyses_total",
			Help: "Total number of whale analyses",
		},
		[]string{"chain", "operation", "status"}, // status: success|error
	)

	MovementsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalescan_movements_detected_total",
			Help: "Total number of movements exceeding the configured threshold",
		},
		[]string{"chain", "direction"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whalescan_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whalescan_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whalescan_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(ExplorerAPICalls)
	prometheus.MustRegister(ExplorerAPIErrors)
	prometheus.MustRegister(ExplorerAPILatency)
	prometheus.MustRegister(RateLimiterWait)

	prometheus.MustRegister(AnalysesCompleted)
	prometheus.MustRegister(MovementsDetected)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordExplorerAPICall records one upstream call attempt
func RecordExplorerAPICall(chain, action string, latency time.Duration, err error) {
	status := "success"
	if errors.Is(err, errors.ErrRateLimited) {
		status = "rate_limited"
	} else if err != nil {
		status = "error"
	}

	ExplorerAPICalls.WithLabelValues(chain, action, status).Inc()
	ExplorerAPILatency.WithLabelValues(chain, action).Observe(latency.Seconds())

	if err != nil {
		ExplorerAPIErrors.WithLabelValues(chain, errorKind(err)).Inc()
	}
}

// RecordAnalysis records an analysis engine operation
func RecordAnalysis(chain, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AnalysesCompleted.WithLabelValues(chain, operation, status).Inc()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, errors.ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, errors.ErrParse):
		return "parse"
	case errors.Is(err, errors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errors.ErrUnknownChain):
		return "unknown_chain"
	default:
		return "other"
	}
}
