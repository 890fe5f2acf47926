package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the detection pipeline.
//
// All collectors are registered against the registry passed to New, so tests
// can use a private registry without polluting the default one.
type Metrics struct {
	// MessagesReceived counts shelf/data messages accepted into the queue.
	MessagesReceived prometheus.Counter

	// MessagesDropped counts shelf/data messages dropped because the
	// ingest queue was full.
	MessagesDropped prometheus.Counter

	// ReadingsRejected counts readings rejected before reaching a shelf,
	// partitioned by reason (decode, unknown_shelf, slot_count).
	ReadingsRejected *prometheus.CounterVec

	// CartEvents counts emitted cart events partitioned by direction
	// (add, remove).
	CartEvents *prometheus.CounterVec

	// QueueDepth tracks the current ingest queue occupancy.
	QueueDepth prometheus.Gauge

	// ActiveShelves tracks the number of shelves constructed in the registry.
	ActiveShelves prometheus.Gauge

	// StaleShelves tracks the number of shelves the watchdog currently
	// considers stale.
	StaleShelves prometheus.Gauge

	// CycleDuration observes per-reading processing latency in seconds.
	CycleDuration prometheus.Histogram
}

// New creates and registers the cabinet metrics on the given registerer.
//
// Pass prometheus.DefaultRegisterer in production; tests should pass
// prometheus.NewRegistry() to keep collectors isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cabinet",
			Subsystem: "ingest",
			Name:      "messages_received_total",
			Help:      "Shelf data messages accepted into the ingest queue.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cabinet",
			Subsystem: "ingest",
			Name:      "messages_dropped_total",
			Help:      "Shelf data messages dropped because the ingest queue was full.",
		}),
		ReadingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cabinet",
			Subsystem: "ingest",
			Name:      "readings_rejected_total",
			Help:      "Readings rejected before reaching a shelf, by reason.",
		}, []string{"reason"}),
		CartEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cabinet",
			Subsystem: "engine",
			Name:      "cart_events_total",
			Help:      "Cart events emitted by the detection engine, by direction.",
		}, []string{"direction"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cabinet",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Current number of readings waiting in the ingest queue.",
		}),
		ActiveShelves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cabinet",
			Subsystem: "engine",
			Name:      "active_shelves",
			Help:      "Number of shelves constructed in the registry.",
		}),
		StaleShelves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cabinet",
			Subsystem: "watchdog",
			Name:      "stale_shelves",
			Help:      "Number of shelves currently flagged stale by the watchdog.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cabinet",
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Per-reading processing latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.MessagesReceived,
		m.MessagesDropped,
		m.ReadingsRejected,
		m.CartEvents,
		m.QueueDepth,
		m.ActiveShelves,
		m.StaleShelves,
		m.CycleDuration,
	)

	return m
}

// Rejection reasons used with ReadingsRejected.
const (
	ReasonDecode       = "decode"
	ReasonUnknownShelf = "unknown_shelf"
	ReasonSlotCount    = "slot_count"
)
