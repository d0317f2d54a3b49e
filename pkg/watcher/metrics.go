package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the watcher's counters. All of them are labeled by the
// configured program name rather than the program id to keep cardinality and
// dashboards readable.
type Metrics struct {
	// TransactionsRecorded counts signature records written to storage,
	// labeled by processing status. The skipped series is the extraction
	// failure count.
	TransactionsRecorded *prometheus.CounterVec
	// EventsExtracted counts events persisted by the backfill poller.
	EventsExtracted *prometheus.CounterVec
	// EventsDispatched counts events fanned out to listeners, from both the
	// poller and the live subscription.
	EventsDispatched *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		TransactionsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_transactions_recorded_total",
				Help: "Transactions recorded to storage, labeled by processing status.",
			},
			[]string{"program", "status"},
		),
		EventsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_events_extracted_total",
				Help: "Decoded events persisted to storage.",
			},
			[]string{"program", "event"},
		),
		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_events_dispatched_total",
				Help: "Decoded events handed to registered listeners.",
			},
			[]string{"program", "event"},
		),
	}
	registry.MustRegister(m.TransactionsRecorded, m.EventsExtracted, m.EventsDispatched)
	return m
}
