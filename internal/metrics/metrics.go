// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package metrics exposes Prometheus instrumentation for the
// notification core: connection counts per feed, topic registry size,
// publish/delivery volume, seed query latency, and ingest throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket connection metrics.

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "placepulse_ws_connections",
			Help: "Currently open WebSocket sessions per feed",
		},
		[]string{"feed"}, // "events", "notifications", "location"
	)

	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placepulse_ws_connections_total",
			Help: "Total accepted WebSocket sessions per feed",
		},
		[]string{"feed"},
	)

	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placepulse_ws_connections_rejected_total",
			Help: "WebSocket connection attempts rejected before open",
		},
		[]string{"feed", "reason"}, // "anonymous", "bad_params", "seed_failed", "upgrade_failed"
	)

	// Topic registry metrics.

	RegistryTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placepulse_registry_topics",
			Help: "Topics with at least one subscriber",
		},
	)

	RegistryMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placepulse_registry_members",
			Help: "Total topic memberships across all topics",
		},
	)

	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placepulse_publishes_total",
			Help: "Publish calls per topic family",
		},
		[]string{"family"}, // "global", "user", "geo", "category", "direct"
	)

	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placepulse_deliveries_total",
			Help: "Frames enqueued to subscriber sessions",
		},
	)

	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placepulse_deliveries_dropped_total",
			Help: "Frame deliveries skipped because the session was closed or its buffer full",
		},
	)

	// Seed query metrics (location feed setup).

	SeedQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placepulse_seed_query_duration_seconds",
			Help:    "Duration of the current-events seed query",
			Buckets: prometheus.DefBuckets,
		},
	)

	SeedQueryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placepulse_seed_query_errors_total",
			Help: "Seed queries that failed or were rejected by the circuit breaker",
		},
	)

	// Store metrics.

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placepulse_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placepulse_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Mutation ingest metrics.

	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placepulse_ingest_messages_total",
			Help: "Mutation messages consumed from the broker",
		},
		[]string{"topic", "outcome"}, // outcome: "dispatched", "invalid"
	)

	// Reminder scheduler metrics.

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placepulse_reminders_sent_total",
			Help: "Event reminders dispatched to user topics",
		},
	)
)

// ObserveStoreQuery records one store query with its duration and outcome.
func ObserveStoreQuery(operation string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// TopicFamily classifies a topic key into its metric family label.
func TopicFamily(topic string) string {
	switch {
	case topic == "global":
		return "global"
	case len(topic) > 5 && topic[:5] == "user:":
		return "user"
	case len(topic) > 4 && topic[:4] == "geo:":
		return "geo"
	case len(topic) > 9 && topic[:9] == "category:":
		return "category"
	default:
		return "other"
	}
}
