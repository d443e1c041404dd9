// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// Metadata keys set on every bus message.
const (
	MetadataTopic = "stream_topic"
	MetadataKind  = "stream_kind"
)

// Publisher pushes envelopes onto the bus.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// NewPublisher returns a publisher writing to topic.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{pub: pub, topic: topic}
}

// Publish validates env and publishes it. It returns the message id.
func (p *Publisher) Publish(ctx context.Context, env stream.Envelope) (string, error) {
	if err := env.Validate(); err != nil {
		return "", err
	}
	data, err := env.Encode()
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	id := uuid.NewString()
	msg := message.NewMessage(id, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataTopic, env.Topic)
	msg.Metadata.Set(MetadataKind, string(env.Kind))

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	metrics.RecordIngest("published")
	return id, nil
}
