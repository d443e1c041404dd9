// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package metrics exposes the Prometheus instruments used across Pulseboard.
//
// Metrics are registered on the default registry through promauto and served
// by promhttp at /metrics. Record* helpers keep label usage consistent at the
// call sites:
//
//   - stream_*: room router sessions, rooms, envelopes emitted/delivered/dropped
//   - producer_*: snapshot duration, cache hits, degraded snapshots, alerts
//   - ingest_*: bus messages forwarded, throttled, rejected
//   - client_*: reconnect attempts, status, malformed frames (pulsewatch)
//   - http_*: API request count, latency and in-flight requests
//   - circuit_breaker_*: state and transitions of the aggregate store breaker
package metrics
