// Package metrics provides Prometheus metrics for PULSE.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pulse"
)

// Submission outcomes used as the "outcome" label
const (
	OutcomeSuccess       = "success"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeNotConfigured = "not_configured"
	OutcomeRateLimited   = "rate_limited"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeDelivery      = "delivery_failed"
	OutcomeStorage       = "storage_error"
	OutcomeError         = "error"
)

// Pipeline metrics
var (
	// SubmissionsTotal counts completed submissions by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "submissions_total",
			Help:      "Total alert submissions by outcome",
		},
		[]string{"outcome"},
	)

	// ThreadFailuresTotal counts alerts logged without a coordination thread.
	ThreadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "thread_failures_total",
			Help:      "Alerts delivered whose coordination thread could not be created",
		},
	)

	// DeliveryDuration tracks channel delivery plus thread creation latency.
	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent posting the alert and creating its thread",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// FeedSubscribers reports connected live alert feed clients.
	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "WebSocket clients subscribed to the live alert feed",
		},
	)
)

// Slack metrics
var (
	// SlackEventsTotal counts Socket Mode events handled, by kind.
	SlackEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "events_total",
			Help:      "Slack slash commands and interactions handled",
		},
		[]string{"kind"},
	)

	// SlackHandlerPanicsTotal counts recovered panics in event handling.
	SlackHandlerPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "handler_panics_total",
			Help:      "Panics recovered while handling Slack events",
		},
	)
)

// Storage metrics
var (
	// ConfigLookupFailuresTotal counts config reads that failed (as opposed
	// to keys that were simply absent).
	ConfigLookupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "config_lookup_failures_total",
			Help:      "Config lookups that failed and were reported as absent",
		},
	)

	// AlertLogFailuresTotal counts failed alert log writes and stats reads.
	AlertLogFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "alert_log_failures_total",
			Help:      "Alert log operations that failed",
		},
		[]string{"op"}, // append, stats
	)
)

// Cooldown metrics
var (
	// CooldownEntries reports the number of tracked submitters.
	CooldownEntries = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cooldown",
			Name:      "entries",
			Help:      "Submitters currently held in the cooldown table",
		},
		func() float64 { return float64(cooldownLen()) },
	)

	cooldownLen = func() int { return 0 }
)

// RegisterCooldownSource wires the cooldown gauge to a live length function.
func RegisterCooldownSource(fn func() int) {
	if fn != nil {
		cooldownLen = fn
	}
}

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "build_date"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, buildDate string) {
	BuildInfo.WithLabelValues(version, buildDate).Set(1)
}
