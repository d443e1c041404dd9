// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package ingest carries pushed updates from other services into the room
router.

Updates travel over a watermill bus. The memory backend is an in-process
gochannel; the nats backend uses core NATS subjects through watermill-nats,
optionally against an embedded nats-server. Delivery is at most once on
both backends, matching the router: a missed update is corrected by the
next init.

	bus, err := ingest.NewBus(cfg.Ingest)
	pub := ingest.NewPublisher(bus.Publisher(), cfg.Ingest.Topic)
	fwd := ingest.NewForwarder(bus.Subscriber(), cfg.Ingest.Topic, router,
		ingest.WithRecorder(db),
		ingest.WithCommunityThrottle(cfg.Ingest.CommunityThrottle))
	go fwd.RunWithContext(ctx)

Community activity published on community:stream is throttled per
activity type; envelopes over the limit are dropped and counted.
*/
package ingest
