// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/models"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// Emitter delivers an envelope to a room.
type Emitter interface {
	Emit(room string, env stream.Envelope) int
}

// ActivityRecorder stores accepted community activity so later snapshots
// include it.
type ActivityRecorder interface {
	RecordCommunityActivity(ctx context.Context, a models.CommunityActivity) error
}

// Result of handling one bus message.
const (
	ResultForwarded = "forwarded"
	ResultThrottled = "throttled"
	ResultInvalid   = "invalid"
)

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithRecorder persists community activity alerts before they are emitted.
func WithRecorder(r ActivityRecorder) ForwarderOption {
	return func(f *Forwarder) { f.recorder = r }
}

// WithCommunityThrottle sets the per-activity-type spacing. Zero disables it.
func WithCommunityThrottle(d time.Duration) ForwarderOption {
	return func(f *Forwarder) { f.throttle = NewThrottle(d) }
}

// WithNow replaces the clock used by the throttle.
func WithNow(now func() time.Time) ForwarderOption {
	return func(f *Forwarder) { f.now = now }
}

// Forwarder consumes the bus and emits into the router.
type Forwarder struct {
	sub      message.Subscriber
	topic    string
	emitter  Emitter
	recorder ActivityRecorder
	throttle *Throttle
	now      func() time.Time
	log      zerolog.Logger
}

// NewForwarder returns a forwarder for topic.
func NewForwarder(sub message.Subscriber, topic string, emitter Emitter, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		sub:      sub,
		topic:    topic,
		emitter:  emitter,
		throttle: NewThrottle(DefaultCommunityThrottle),
		now:      time.Now,
		log:      logging.WithComponent("ingest-forwarder"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RunWithContext consumes until ctx is canceled or the subscriber closes.
func (f *Forwarder) RunWithContext(ctx context.Context) error {
	messages, err := f.sub.Subscribe(ctx, f.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", f.topic, err)
	}
	f.log.Info().Str("topic", f.topic).Msg("Ingest forwarder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			result := f.Handle(ctx, msg.Payload)
			metrics.RecordIngest(result)
			// Redelivery cannot fix a bad or throttled message.
			msg.Ack()
		}
	}
}

// Handle processes one encoded envelope and returns the result label.
func (f *Forwarder) Handle(ctx context.Context, payload []byte) string {
	env, err := stream.ParseEnvelope(payload)
	if err != nil {
		f.log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping invalid ingest message")
		return ResultInvalid
	}

	if env.Topic == stream.RoomCommunityStream {
		if activityType := activityTypeOf(env.Payload); activityType != "" {
			if !f.throttle.Allow(activityType, f.now()) {
				f.log.Debug().Str("activity_type", activityType).Msg("Community activity throttled")
				return ResultThrottled
			}
			if env.Kind == stream.KindAlert {
				f.record(ctx, env.Payload)
			}
		}
	}

	delivered := f.emitter.Emit(env.Topic, env)
	f.log.Debug().Str("room", env.Topic).Str("kind", string(env.Kind)).
		Int("delivered", delivered).Msg("Ingest envelope forwarded")
	return ResultForwarded
}

func (f *Forwarder) record(ctx context.Context, payload json.RawMessage) {
	if f.recorder == nil {
		return
	}
	var a models.CommunityActivity
	if err := json.Unmarshal(payload, &a); err != nil {
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = f.now()
	}
	if err := f.recorder.RecordCommunityActivity(ctx, a); err != nil {
		f.log.Warn().Err(err).Str("activity_type", a.ActivityType).Msg("Failed to record community activity")
	}
}

// activityTypeOf returns the top-level activity_type of an object payload.
func activityTypeOf(payload json.RawMessage) string {
	var probe struct {
		ActivityType string `json:"activity_type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.ActivityType)
}
