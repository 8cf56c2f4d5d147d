package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairalert_alerts_created_total",
			Help: "Total number of alerts whose monitor was started",
		},
	)

	AlertsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairalert_alerts_finished_total",
			Help: "Total number of monitors that reached a terminal state",
		},
		[]string{"state"}, // resolved, timed_out, failed, error
	)

	AlertsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairalert_alerts_active",
			Help: "Number of monitors currently running",
		},
	)

	MetricFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairalert_metric_fetch_failures_total",
			Help: "Total number of failed metric fetches inside monitors",
		},
		[]string{"metric"},
	)

	SelectionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairalert_selection_outcomes_total",
			Help: "Outcomes of the interactive selection stages",
		},
		[]string{"stage", "outcome"}, // pair/metric/threshold, resolved/cancelled/exhausted/timeout
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairalert_api_requests_total",
			Help: "Total number of market data API requests",
		},
		[]string{"api", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairalert_api_request_duration_seconds",
			Help:    "Duration of market data API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api", "endpoint"},
	)
)

func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

func RecordSelection(stage, outcome string) {
	SelectionOutcomes.WithLabelValues(stage, outcome).Inc()
}

func RecordAlertFinished(state string) {
	AlertsFinished.WithLabelValues(state).Inc()
}
