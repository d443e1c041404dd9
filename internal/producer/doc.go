// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package producer computes dashboard snapshots and drives the emit ticker.

A Producer turns the aggregate store and host metrics into immutable
stream.Snapshot values, one kind at a time:

	kpis       -> bi-kpis          (24h practitioner KPIs)
	dashboard  -> dashboard-stats  (admin summary and weekly trend)
	health     -> system-metrics   (host CPU, memory, disk, load)
	community  -> community:stream (recent community activity)

Produce never fails because of the store. Results are memoized for the
configured cache TTL, concurrent calls for one kind share a single query,
store calls run behind a circuit breaker and a query timeout, and any
failure yields a degraded snapshot that carries the last good data.

The Ticker runs one loop per kind. Each tick emits an update envelope with
the top-level keys that changed since the previous tick, a full init every
ResyncEvery ticks (and after any degraded tick), and an error envelope when
the snapshot is degraded. Health ticks also evaluate alert thresholds and
emit alert envelopes to system-alerts, rate limited per alert type.
*/
package producer
