package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal tracks dispatch outcomes per operation kind
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacer_dispatches_total",
			Help: "Total number of dispatch attempts",
		},
		[]string{"kind", "status"},
	)

	// StaggerDelaySeconds tracks delays applied before dispatch
	StaggerDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pacer_stagger_delay_seconds",
			Help:    "Stagger delay applied before dispatching an operation",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// DispatchDuration tracks runner call latency per operation kind
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pacer_dispatch_duration_seconds",
			Help:    "Runner call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// ReplayQueueDepth tracks the number of parked failed dispatches
	ReplayQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pacer_replay_queue_depth",
			Help: "Number of failed dispatches waiting for replay",
		},
	)

	// ReplaysTotal tracks replay outcomes
	ReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacer_replays_total",
			Help: "Total number of replayed dispatches",
		},
		[]string{"status"},
	)

	// EventsRejectedTotal tracks payloads that never reached the runner
	EventsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pacer_events_rejected_total",
			Help: "Total number of events rejected before dispatch",
		},
	)
)
