// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Signal intake
	ChatEventsReceived prometheus.Counter
	SignalOutcomes     *prometheus.CounterVec
	WatchListSize      prometheus.Gauge
	TokenListSize      prometheus.Gauge

	// Evaluator
	EvaluatorTicks        prometheus.Counter
	EvaluatorTickDuration prometheus.Histogram
	TokenResults          *prometheus.CounterVec
	PositionsOpened       prometheus.Counter

	// Orders
	OrdersSubmitted *prometheus.CounterVec

	// Upstream providers
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec

	// Storage
	JournalWrites *prometheus.CounterVec

	// Scheduler
	JobRuns *prometheus.CounterVec

	// Health
	LastSuccessfulTick prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "signal_trader"
	}

	return &Metrics{
		ChatEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "chat_events_received_total",
			Help:      "Total number of chat events received",
		}),
		SignalOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "signal_outcomes_total",
			Help:      "Chat events by routing outcome",
		}, []string{"outcome"}),
		WatchListSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "size",
			Help:      "Number of tokens currently watched",
		}),
		TokenListSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tokenlist",
			Name:      "size",
			Help:      "Number of tokens in the symbol registry",
		}),
		EvaluatorTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "ticks_total",
			Help:      "Completed evaluator ticks",
		}),
		EvaluatorTickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "tick_duration_seconds",
			Help:      "Duration of evaluator ticks",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TokenResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "token_results_total",
			Help:      "Per-token evaluation results by status",
		}, []string{"status"}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		OrdersSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "orders_submitted_total",
			Help:      "Orders submitted by kind and result",
		}, []string{"kind", "result"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Upstream request latency",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"provider", "method"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Upstream request errors",
		}, []string{"provider", "method"}),
		JournalWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "journal_writes_total",
			Help:      "Trade journal writes by result",
		}, []string{"result"}),
		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and status (success, error, skipped, panic)",
		}, []string{"job", "status"}),
		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last completed evaluator tick",
		}),
	}
}

// Handler returns HTTP handler for Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordChatEvent increments the received chat events counter.
func RecordChatEvent() {
	DefaultMetrics.ChatEventsReceived.Inc()
}

// RecordSignalOutcome records the routing outcome of one chat event.
func RecordSignalOutcome(outcome string) {
	DefaultMetrics.SignalOutcomes.WithLabelValues(outcome).Inc()
}

// UpdateWatchListSize updates the watch-list gauge.
func UpdateWatchListSize(n int) {
	DefaultMetrics.WatchListSize.Set(float64(n))
}

// UpdateTokenListSize updates the token registry gauge.
func UpdateTokenListSize(n int) {
	DefaultMetrics.TokenListSize.Set(float64(n))
}

// RecordTick records a completed evaluator tick.
func RecordTick(duration time.Duration) {
	DefaultMetrics.EvaluatorTicks.Inc()
	DefaultMetrics.EvaluatorTickDuration.Observe(duration.Seconds())
	DefaultMetrics.LastSuccessfulTick.SetToCurrentTime()
}

// RecordTokenResult records the evaluation result of one token.
func RecordTokenResult(status string) {
	DefaultMetrics.TokenResults.WithLabelValues(status).Inc()
}

// RecordPositionOpened increments the opened positions counter.
func RecordPositionOpened() {
	DefaultMetrics.PositionsOpened.Inc()
}

// RecordOrder records an order submission.
func RecordOrder(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	DefaultMetrics.OrdersSubmitted.WithLabelValues(kind, result).Inc()
}

// RecordProviderCall records an upstream call.
func RecordProviderCall(provider, method string, seconds float64, err error) {
	DefaultMetrics.ProviderLatency.WithLabelValues(provider, method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderErrors.WithLabelValues(provider, method).Inc()
	}
}

// RecordJournalWrite records a trade journal write.
func RecordJournalWrite(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	DefaultMetrics.JournalWrites.WithLabelValues(result).Inc()
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, status string) {
	DefaultMetrics.JobRuns.WithLabelValues(job, status).Inc()
}
