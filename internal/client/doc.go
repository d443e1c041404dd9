// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package client is the consumer side of the dashboard stream.

A Manager owns one transport, chosen when the manager is built: the duplex
websocket transport, the server-sent events fallback, or auto, which tries
the websocket first and settles on whichever transport connects.

Connect starts a Handle. The handle keeps a merged state per topic, a
connection status and the last transport error. On failure it reconnects
indefinitely with capped exponential backoff and re-subscribes the full
room set, since the server forgets membership when a session ends.

	m, err := client.New(cfg.Client)
	if err != nil {
		return err
	}
	h, err := m.Connect(client.Handlers{
		OnUpdate: func(topic string, merged, partial stream.State) { ... },
		OnStatus: func(s client.Status, err error) { ... },
	})
	if err != nil {
		return err
	}
	defer h.Disconnect()
	sub, err := h.Subscribe(stream.RoomKPIs, stream.RoomSystemMetrics)

Init replaces a topic's mirror. Update merges shallowly: each key in the
partial payload replaces the previous value. Fields registered with
WithDeepMerge merge nested objects recursively instead.

Disconnect is idempotent. It cancels any pending retry timer and closes the
transport before it returns; no handler runs after it.
*/
package client
