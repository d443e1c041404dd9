// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package stream defines the wire contract shared by the streaming server and
its clients.

# Envelope

Every message pushed to a client is an Envelope:

	{"topic": "bi-kpis", "kind": "update", "payload": {"daily_active_practitioners": 42}}

Kind selects how the payload is applied:

  - init: a full Snapshot that replaces the client's mirror for the topic
  - update: a partial payload merged shallowly into the mirror
  - alert, error: out-of-band data routed to dedicated handlers, never merged

Decode turns an Envelope into one of the Event variants (Init, Update, Alert,
Error) so dispatch sites switch on a concrete type instead of inspecting the
kind string.

# Rooms

A room is a topic name: lowercase alphanumerics separated by single '-' or
':' characters, for example "bi-kpis" or "community:stream". One room carries
exactly one category of data. Rooms are grouped into features (bi, system,
community) for the feature-scoped subscribe messages.
*/
package stream
