package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "assignments_total", Help: "Committed assignments by path"},
		[]string{"path"},
	)
	AssignmentConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "assignment_conflicts_total", Help: "Ledger commits rejected by re-validation"},
	)
	DispatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "contractor_dispatches_total", Help: "Bookings fanned out to contractors"},
	)
	RequestsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "confirmation_requests_expired_total", Help: "Confirmation requests expired by the sweep"},
	)
	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "escalations_total", Help: "Bookings left for manual intervention"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fleetdesk", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleetdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
