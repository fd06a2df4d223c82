package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectflow_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// InvitesCreated counts task invitations by outcome (created|quota_exceeded).
	InvitesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectflow_invites_total",
			Help: "Total number of task invitation attempts",
		},
		[]string{"result"},
	)

	// TasksLinked counts pending tasks converted into real assignments, by trigger
	// (register|accept|dashboard).
	TasksLinked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectflow_tasks_linked_total",
			Help: "Total number of pending tasks linked to accounts",
		},
		[]string{"trigger"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "projectflow_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "projectflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
