// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package api exposes the HTTP surface of the streaming server.

Routes:

	GET  /health/live              liveness
	GET  /health/ready             readiness (pings the aggregate store)
	GET  /metrics                  Prometheus exposition
	GET  /api/v1/ws                duplex websocket session
	GET  /api/v1/stream/events     server-sent events fallback
	POST /api/v1/stream/publish    push an envelope onto the ingest bus
	GET  /api/v1/stream/stats      router and producer statistics
	GET  /api/v1/snapshots/{kind}  produce one snapshot

Everything under /api/v1 passes through auth.Middleware.RequireAdmin and
the Prometheus request middleware. JSON responses use the APIResponse
envelope written by ResponseWriter.
*/
package api
