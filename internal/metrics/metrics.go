package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_http_requests_total",
			Help: "Total requests sent to the conversation API",
		},
		[]string{"method", "status"},
	)

	// Polling metrics
	PollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_poll_ticks_total",
			Help: "Poll ticks by outcome",
		},
		[]string{"outcome"}, // "ok", "error" or "skipped"
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_fetch_duration_seconds",
			Help:    "Duration of snapshot fetches",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"resource"},
	)

	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_stale_responses_total",
			Help: "Responses discarded because the selection changed",
		},
	)

	// Reconciliation metrics
	PendingMutations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_pending_mutations",
			Help: "Optimistic mutations awaiting reconciliation",
		},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_mutations_total",
			Help: "User mutations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)
