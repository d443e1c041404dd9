// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Room router
	StreamSessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_sessions_active",
			Help: "Connected streaming sessions by transport",
		},
		[]string{"transport"}, // "duplex", "fallback-poll"
	)

	StreamSessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_sessions_closed_total",
			Help: "Streaming sessions closed, by reason",
		},
		[]string{"reason"},
	)

	StreamRoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_rooms_active",
			Help: "Rooms with at least one subscriber",
		},
	)

	StreamEnvelopesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_envelopes_emitted_total",
			Help: "Envelopes emitted into a room",
		},
		[]string{"room", "kind"},
	)

	StreamEnvelopesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_envelopes_delivered_total",
			Help: "Envelopes enqueued to a session",
		},
		[]string{"room"},
	)

	StreamEnvelopesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_envelopes_dropped_total",
			Help: "Envelopes dropped for a session",
		},
		[]string{"room", "reason"}, // "slow_consumer", "encode"
	)

	StreamControlMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_control_messages_total",
			Help: "Client control messages received, by type and result",
		},
		[]string{"type", "result"},
	)

	// Snapshot producer
	ProducerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "producer_snapshot_duration_seconds",
			Help:    "Time spent producing a snapshot from the aggregate store",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"kind"},
	)

	ProducerCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_cache_hits_total",
			Help: "Snapshots served from the TTL cache",
		},
		[]string{"kind"},
	)

	ProducerCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_cache_misses_total",
			Help: "Snapshots that required a store query",
		},
		[]string{"kind"},
	)

	ProducerDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_degraded_snapshots_total",
			Help: "Snapshots returned with a degraded marker",
		},
		[]string{"kind"},
	)

	ProducerAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_alerts_total",
			Help: "Threshold alerts raised, by type, severity and whether they were suppressed",
		},
		[]string{"alert_type", "severity", "suppressed"},
	)

	// Ingest
	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Messages consumed from the ingest bus, by result",
		},
		[]string{"result"}, // "forwarded", "throttled", "invalid", "published"
	)

	// Stream client
	ClientReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_reconnect_attempts_total",
			Help: "Connection attempts made by the stream client",
		},
		[]string{"transport", "result"},
	)

	ClientMalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "client_malformed_frames_total",
			Help: "Inbound frames dropped because they could not be parsed",
		},
	)

	// Auth
	AuthRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Admin auth decisions by result",
		},
		[]string{"result"}, // "ok", "missing", "invalid", "forbidden"
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served, streams included",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEmit records one emit call and how many sessions it reached.
func RecordEmit(room, kind string, delivered int) {
	StreamEnvelopesEmitted.WithLabelValues(room, kind).Inc()
	if delivered > 0 {
		StreamEnvelopesDelivered.WithLabelValues(room).Add(float64(delivered))
	}
}

// RecordDrop records an envelope dropped for one session.
func RecordDrop(room, reason string) {
	StreamEnvelopesDropped.WithLabelValues(room, reason).Inc()
}

// RecordSessionClosed records a closed session.
func RecordSessionClosed(transport, reason string) {
	StreamSessionsActive.WithLabelValues(transport).Dec()
	StreamSessionsClosed.WithLabelValues(reason).Inc()
}

// RecordSessionOpened records a registered session.
func RecordSessionOpened(transport string) {
	StreamSessionsActive.WithLabelValues(transport).Inc()
}

// RecordProduce records a store-backed snapshot production.
func RecordProduce(kind string, duration time.Duration, degraded bool) {
	ProducerDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if degraded {
		ProducerDegraded.WithLabelValues(kind).Inc()
	}
}

// RecordCache records a producer cache lookup.
func RecordCache(kind string, hit bool) {
	if hit {
		ProducerCacheHits.WithLabelValues(kind).Inc()
	} else {
		ProducerCacheMisses.WithLabelValues(kind).Inc()
	}
}

// RecordAlert records a threshold alert decision.
func RecordAlert(alertType, severity string, suppressed bool) {
	s := "false"
	if suppressed {
		s = "true"
	}
	ProducerAlerts.WithLabelValues(alertType, severity, s).Inc()
}

// RecordIngest records the outcome of one ingest message.
func RecordIngest(result string) {
	IngestMessages.WithLabelValues(result).Inc()
}

// RecordAuthResult records one admin auth decision.
func RecordAuthResult(result string) {
	AuthRequests.WithLabelValues(result).Inc()
}

// RecordReconnectAttempt records a client connection attempt.
func RecordReconnectAttempt(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ClientReconnectAttempts.WithLabelValues(transport, result).Inc()
}

// RecordControlMessage records a client control message.
func RecordControlMessage(msgType string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	StreamControlMessages.WithLabelValues(msgType, result).Inc()
}

// SetCircuitBreakerState records the numeric state of a named breaker.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}
