// Package metrics defines the Prometheus instrumentation for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notifier metrics
var (
	// ScanCyclesTotal counts completed notifier scan cycles.
	ScanCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_scan_cycles_total",
			Help: "Total completed notifier scan cycles",
		},
	)

	// ScanDuration tracks full scan cycle duration in seconds.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_scan_duration_seconds",
			Help:    "Notifier scan cycle duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	// NotificationsTotal counts drift notifications by result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_notifications_total",
			Help: "Total drift notifications by result (sent/send_error/mark_error)",
		},
		[]string{"result"},
	)
)

// Catalog client metrics
var (
	// LookupRequestsTotal counts catalog requests by endpoint and status.
	LookupRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total catalog requests by endpoint and status (ok/not_found/error)",
		},
		[]string{"endpoint", "status"},
	)

	// LookupDuration tracks catalog request latency by endpoint.
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Catalog request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// BreakerStateChanges counts catalog circuit breaker transitions.
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_breaker_state_changes_total",
			Help: "Catalog circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)
)

// Watch store metrics
var (
	// StoreOpsTotal counts sheet store operations by operation and status.
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total watch store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// StoreOpDuration tracks sheet store operation latency.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Watch store operation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// CredentialRefreshesTotal counts credential refresh attempts by result.
	CredentialRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_credential_refreshes_total",
			Help: "Total store credential refresh attempts by result (ok/error)",
		},
		[]string{"result"},
	)
)

// Command and session metrics
var (
	// CommandsTotal counts chat commands by command and result.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_total",
			Help: "Total chat commands by command and result (ok/user_error/error/cooldown)",
		},
		[]string{"command", "result"},
	)

	// ActiveSessions tracks currently running pagination sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchlist_active_sessions",
			Help: "Number of currently active watch-list pagination sessions",
		},
	)

	// SessionOutcomes counts finished pagination sessions by terminal state.
	SessionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchlist_session_outcomes_total",
			Help: "Finished watch-list sessions by outcome (closed/expired/no_outdated/cancelled)",
		},
		[]string{"outcome"},
	)
)
