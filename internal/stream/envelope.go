// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package stream

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Kind is the envelope discriminator.
type Kind string

const (
	KindInit   Kind = "init"
	KindUpdate Kind = "update"
	KindAlert  Kind = "alert"
	KindError  Kind = "error"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInit, KindUpdate, KindAlert, KindError:
		return true
	}
	return false
}

var (
	// ErrUnknownKind is returned for envelopes whose kind is not init, update, alert or error.
	ErrUnknownKind = errors.New("unknown envelope kind")

	// ErrPayloadNotObject is returned when an init or update payload is not a JSON object.
	ErrPayloadNotObject = errors.New("payload must be a JSON object")

	// ErrMissingPayload is returned when an envelope has no payload.
	ErrMissingPayload = errors.New("envelope payload is required")
)

// Envelope is the wire unit pushed to clients.
type Envelope struct {
	Topic   string          `json:"topic"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and builds a validated envelope.
func NewEnvelope(topic string, kind Kind, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload for %s: %w", kind, topic, err)
	}
	env := Envelope{Topic: topic, Kind: kind, Payload: raw}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks the topic name, the kind, and the payload shape.
// init and update payloads must be JSON objects; alert and error payloads
// may be any JSON value.
func (e Envelope) Validate() error {
	if err := ValidateRoom(e.Topic); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	trimmed := bytes.TrimSpace(e.Payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrMissingPayload
	}
	if (e.Kind == KindInit || e.Kind == KindUpdate) && trimmed[0] != '{' {
		return fmt.Errorf("%w: %s envelope for %s", ErrPayloadNotObject, e.Kind, e.Topic)
	}
	return nil
}

// Encode returns the JSON frame for the envelope.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes and validates a single JSON frame.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Event is the decoded form of an Envelope. The concrete type is one of
// Init, Update, Alert or Error.
type Event interface {
	EventTopic() string
	event()
}

// Init carries a full snapshot for Topic.
type Init struct {
	Topic    string
	Snapshot State
}

// Update carries a partial payload to merge into the mirror for Topic.
type Update struct {
	Topic   string
	Partial State
}

// Alert is an out-of-band notification.
type Alert struct {
	Topic string
	Data  json.RawMessage
}

// Error is an out-of-band diagnostic, e.g. a degraded snapshot.
type Error struct {
	Topic string
	Data  json.RawMessage
}

func (e Init) EventTopic() string   { return e.Topic }
func (e Update) EventTopic() string { return e.Topic }
func (e Alert) EventTopic() string  { return e.Topic }
func (e Error) EventTopic() string  { return e.Topic }

func (Init) event()   {}
func (Update) event() {}
func (Alert) event()  {}
func (Error) event()  {}

// Decode converts an envelope into its Event variant.
func Decode(env Envelope) (Event, error) {
	switch env.Kind {
	case KindInit:
		s, err := ParseState(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("init for %s: %w", env.Topic, err)
		}
		return Init{Topic: env.Topic, Snapshot: s}, nil
	case KindUpdate:
		s, err := ParseState(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("update for %s: %w", env.Topic, err)
		}
		return Update{Topic: env.Topic, Partial: s}, nil
	case KindAlert:
		return Alert{Topic: env.Topic, Data: env.Payload}, nil
	case KindError:
		return Error{Topic: env.Topic, Data: env.Payload}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
