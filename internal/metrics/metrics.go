// Package metrics exposes the prometheus counters for the fan-out pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_events_consumed_total",
		Help: "Events consumed from the bus, by kind.",
	}, []string{"kind"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_handler_failures_total",
		Help: "Isolated fan-out step failures, by step.",
	}, []string{"step"})

	PushSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_push_sent_total",
		Help: "Push messages accepted by the gateway.",
	})

	PushFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_push_failed_total",
		Help: "Push messages rejected or undeliverable.",
	})

	DedupSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_dedup_suppressed_total",
		Help: "Notifications suppressed by the daily dedup log, by category.",
	}, []string{"category"})

	BadgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_badges_awarded_total",
		Help: "First-time badge grants, by type.",
	}, []string{"type"})
)
