package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. Relay Fetches Total (Counter)
	// Counts fetch round trips against the relay pool, labeled by what was
	// asked for and how it went.
	RelayFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrgraph_relay_fetches_total",
			Help: "Total number of relay fetch round trips",
		},
		[]string{"kind", "outcome"}, // Labels
	)

	// 2. Relay Fetch Duration (Histogram)
	// Measures how long a batched fetch takes end to end. Relay queries can
	// stall for the full EOSE timeout, hence the wide buckets.
	RelayFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nostrgraph_relay_fetch_duration_seconds",
			Help:    "Duration of relay fetch round trips in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	// 3. Events Received (Counter)
	// Raw events delivered by relays before deduplication, by kind.
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrgraph_events_received_total",
			Help: "Total number of relay events received",
		},
		[]string{"kind"},
	)

	// 4. Graph Size (Gauge)
	// Tracks how many identities the in-memory follow graph holds.
	GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrgraph_graph_nodes",
			Help: "Number of identities in the follow graph",
		},
	)

	// 5. Searches Total (Counter)
	// Separation searches and ranking runs, labeled by operation and outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrgraph_searches_total",
			Help: "Total number of graph searches executed",
		},
		[]string{"operation", "outcome"},
	)

	// 6. Mentions Handled (Counter)
	// Listener mentions picked up and answered, by outcome.
	MentionsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrgraph_mentions_handled_total",
			Help: "Total number of listener mentions processed",
		},
		[]string{"outcome"},
	)
)
