package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversation store metrics, served by `creator-chat serve` on /metrics.
var (
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "remote_calls_total",
			Help:      "Calls to the AI chat service by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "remote_call_duration_seconds",
			Help:      "AI chat service call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"op"},
	)

	SendOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "sends_total",
			Help:      "SendMessage results: ok, warning, rolled_back, superseded, rejected, general",
		},
		[]string{"result"},
	)

	HydrateDiscardsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "hydrate_discards_total",
			Help:      "Persisted conversation blobs discarded as corrupt or incompatible",
		},
	)

	PersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Write-through persistence failures",
		},
	)

	ThreadsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "creator_chat",
			Subsystem: "store",
			Name:      "threads",
			Help:      "Conversation threads currently held",
		},
	)
)
