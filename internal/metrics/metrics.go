package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of waiting sessions per queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_queue_depth",
		Help: "Current number of queued sessions",
	}, []string{"queue"})

	// AvailableAgents tracks agents currently able to accept a chat.
	AvailableAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_available_agents",
		Help: "Agents active, accepting, and with a free slot",
	})

	// AssignmentsTotal counts committed assignments per team.
	AssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Total committed session assignments",
	}, []string{"team"})

	// AssignmentFailures counts assignment attempts abandoned after the
	// capacity re-check or commit failed.
	AssignmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignment_failures_total",
		Help: "Assignment attempts that released their reservation",
	}, []string{"reason"})

	// RefusalsTotal counts sessions refused at admission.
	RefusalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_refusals_total",
		Help: "Sessions refused by the admission predicate",
	})

	// TimeoutsTotal counts sessions inactivated for missed polls.
	TimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_timeouts_total",
		Help: "Sessions inactivated after crossing the missed-poll threshold",
	})

	// OverflowPromotions counts sessions moved from the main queue to the
	// overflow queue.
	OverflowPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_overflow_promotions_total",
		Help: "Sessions redirected to the overflow queue",
	})

	// TickDuration observes background loop iterations.
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_tick_duration_seconds",
		Help:    "Duration of one dispatcher or monitor tick",
		Buckets: prometheus.DefBuckets,
	}, []string{"loop"})

	// PollsTotal counts client liveness polls.
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_polls_total",
		Help: "Total session polls received",
	})
)
