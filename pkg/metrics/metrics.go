package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Job polling metrics
	JobPollAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqt_job_poll_attempts_total",
		Help: "Total number of job state fetches performed while waiting for a result",
	}, []string{"outcome"})
	JobPollTransientErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aqt_job_poll_transient_errors_total",
		Help: "Total number of transient request errors swallowed by the polling loop",
	})
	JobWaitTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aqt_job_wait_timeouts_total",
		Help: "Total number of waits that exhausted their attempt budget",
	})
	// Keyed by HTTP status class to keep cardinality bounded.
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqt_api_requests_total",
		Help: "Total number of ARNICA API requests grouped by endpoint and status class",
	}, []string{"endpoint", "code"})

	// Authentication metrics
	AuthFlows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqt_auth_flows_total",
		Help: "Total number of authentication flows grouped by grant and result",
	}, []string{"grant", "result"})
	DevicePolls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqt_device_token_polls_total",
		Help: "Total number of device-code token polls grouped by provider answer",
	}, []string{"answer"})
	TokenCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aqt_token_cache_lookups_total",
		Help: "Total number of cached token lookups grouped by result (hit, miss, invalid)",
	}, []string{"result"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		JobPollAttempts,
		JobPollTransientErrors,
		JobWaitTimeouts,
		APIRequests,
		AuthFlows,
		DevicePolls,
		TokenCacheLookups,
	}
}

// Register adds all connector metrics to reg. Collectors that are already
// registered with reg are skipped, so calling Register twice is harmless.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
