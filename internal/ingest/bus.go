// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
)

// memoryBuffer is the per-subscriber channel size of the memory backend.
const memoryBuffer = 256

// Bus is a publisher/subscriber pair on one backend.
type Bus struct {
	backend    string
	publisher  message.Publisher
	subscriber message.Subscriber
	server     *EmbeddedServer
	shared     bool // publisher and subscriber are one object

	closeOnce sync.Once
	closeErr  error
}

// NewBus builds the bus selected by cfg.Backend.
func NewBus(cfg config.IngestConfig) (*Bus, error) {
	logger := logging.NewWatermillLogger("ingest")

	switch cfg.Backend {
	case config.IngestBackendMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: memoryBuffer}, logger)
		return &Bus{backend: config.IngestBackendMemory, publisher: ch, subscriber: ch, shared: true}, nil

	case config.IngestBackendNATS:
		return newNATSBus(cfg, logger)

	default:
		return nil, fmt.Errorf("unknown ingest backend %q", cfg.Backend)
	}
}

func newNATSBus(cfg config.IngestConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	b := &Bus{backend: config.IngestBackendNATS}
	url := cfg.NATSURL

	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1, StoreDir: cfg.StoreDir})
		if err != nil {
			return nil, err
		}
		b.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("pulseboard"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	// Updates are lossy by contract; core subjects are enough.
	js := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   js,
	}, logger)
	if err != nil {
		b.shutdownServer()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	b.publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   5 * time.Second,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        js,
	}, logger)
	if err != nil {
		_ = pub.Close()
		b.shutdownServer()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	b.subscriber = sub
	return b, nil
}

// Backend returns the backend name.
func (b *Bus) Backend() string { return b.backend }

// Publisher returns the watermill publisher.
func (b *Bus) Publisher() message.Publisher { return b.publisher }

// Subscriber returns the watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber { return b.subscriber }

// Server returns the embedded NATS server, or nil.
func (b *Bus) Server() *EmbeddedServer { return b.server }

// Close closes the publisher, the subscriber and the embedded server.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
		if !b.shared {
			if err := b.subscriber.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close subscriber: %w", err))
			}
		}
		b.shutdownServer()
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

func (b *Bus) shutdownServer() {
	if b.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server shutdown timed out")
	}
}
