// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package websocket implements the server side of the stream: the room
router, connection sessions, and the duplex websocket transport.

Key Components:

  - Router: owned registry of sessions and room memberships; fans envelopes
    out to the members of a room
  - Session: one attached client, with its outbound queue, joined rooms,
    transport kind and last-seen time
  - ServeWS: upgrades an HTTP request into a duplex session with read and
    write pumps

Architecture:

	Producer/Ingest ──Emit(room, env)──► Router ──► Session.Outbound ──► writePump ──► client
	                                       ▲
	client ──► readPump ──ControlMessage───┘ (subscribe, join:room, ping, ...)

Delivery Semantics:

Emits and membership changes are serialized by the router, so a session
sees envelopes of one room in emit order. Delivery is at most once and
never blocks: a session whose queue is full is closed as a slow consumer.
Sessions that are closing receive nothing. Joining a room queues the
room's current init snapshot ahead of any later emit.

Control Messages:

	{"type":"subscribe","rooms":["bi-kpis","system-metrics"]}
	{"type":"unsubscribe"}                        leaves every room
	{"type":"join:room","room":"community:stream"}
	{"type":"leave:room","room":"community:stream"}
	{"type":"bi:subscribe"}                       all rooms of a feature
	{"type":"community:unsubscribe"}
	{"type":"ping"}                               answered with {"type":"pong"}

Rejected messages are answered with an error envelope on stream:control;
the session stays open.

Idle sessions are reaped by Router.RunWithContext after the configured
idle timeout.
*/
package websocket
