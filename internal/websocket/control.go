// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package websocket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// Control message types sent by clients.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgJoinRoom    = "join:room"
	MsgLeaveRoom   = "leave:room"
	MsgPing        = "ping"
	MsgPong        = "pong"

	featureSubscribeSuffix   = ":subscribe"
	featureUnsubscribeSuffix = ":unsubscribe"
)

var (
	// ErrUnknownControl is returned for control message types the router does not handle.
	ErrUnknownControl = errors.New("unknown control message")

	// ErrRoomNotInFeature is returned when a feature subscribe names a foreign room.
	ErrRoomNotInFeature = errors.New("room does not belong to feature")

	// ErrNoRooms is returned by subscribe without rooms.
	ErrNoRooms = errors.New("no rooms given")
)

// ControlMessage is a client to server message on the duplex channel.
type ControlMessage struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms,omitempty"`
	Room  string   `json:"room,omitempty"`
}

// PongFrame is the reply to a ping control message.
var PongFrame = []byte(`{"type":"pong"}`)

// ControlError is the payload of the error envelope sent on stream:control
// when a control message is rejected.
type ControlError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// HandleControl applies one control message for session id. Room lists are
// validated as a whole before any membership changes.
func (r *Router) HandleControl(id string, msg ControlMessage) error {
	err := r.handleControl(id, msg)
	metrics.RecordControlMessage(metricType(msg.Type), err)
	return err
}

func (r *Router) handleControl(id string, msg ControlMessage) error {
	switch msg.Type {
	case MsgPing:
		return r.sendRaw(id, PongFrame)

	case MsgSubscribe:
		rooms, err := stream.NormalizeRooms(msg.Rooms)
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			return ErrNoRooms
		}
		return r.joinAll(id, rooms)

	case MsgUnsubscribe:
		if len(msg.Rooms) == 0 {
			_, err := r.LeaveAll(id)
			return err
		}
		return r.leaveAll(id, msg.Rooms)

	case MsgJoinRoom:
		if err := validateJoinable(msg.Room); err != nil {
			return err
		}
		return r.Join(id, msg.Room)

	case MsgLeaveRoom:
		return r.Leave(id, msg.Room)
	}

	if feature, ok := strings.CutSuffix(msg.Type, featureSubscribeSuffix); ok {
		return r.featureSubscribe(id, feature, msg.Rooms)
	}
	if feature, ok := strings.CutSuffix(msg.Type, featureUnsubscribeSuffix); ok {
		rooms := stream.FeatureRooms(feature)
		if rooms == nil {
			return fmt.Errorf("%w: %q", ErrUnknownControl, msg.Type)
		}
		return r.leaveAll(id, rooms)
	}
	return fmt.Errorf("%w: %q", ErrUnknownControl, msg.Type)
}

// featureSubscribe joins the requested rooms of a feature, or all of them
// when none are named.
func (r *Router) featureSubscribe(id, feature string, requested []string) error {
	allowed := stream.FeatureRooms(feature)
	if allowed == nil {
		return fmt.Errorf("%w: %q", ErrUnknownControl, feature+featureSubscribeSuffix)
	}
	if len(requested) == 0 {
		return r.joinAll(id, allowed)
	}
	rooms, err := stream.NormalizeRooms(requested)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if stream.FeatureOf(room) != feature {
			return fmt.Errorf("%w: %s not in %s", ErrRoomNotInFeature, room, feature)
		}
	}
	return r.joinAll(id, rooms)
}

func (r *Router) joinAll(id string, rooms []string) error {
	for _, room := range rooms {
		if err := validateJoinable(room); err != nil {
			return err
		}
	}
	for _, room := range rooms {
		if err := r.Join(id, room); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) leaveAll(id string, rooms []string) error {
	for _, room := range rooms {
		if err := r.Leave(id, strings.TrimSpace(room)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) sendRaw(id string, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !s.enqueue(frame) {
		r.closeLocked(s, ReasonSlowConsumer)
	}
	return nil
}

// RejectControl answers a rejected control message with an error envelope
// on stream:control.
func (r *Router) RejectControl(id, msgType string, cause error) {
	env, err := stream.NewEnvelope(stream.RoomControl, stream.KindError, ControlError{Type: msgType, Error: cause.Error()})
	if err != nil {
		return
	}
	_ = r.Send(id, env)
}

// metricType bounds the label cardinality of control metrics.
func metricType(t string) string {
	switch t {
	case MsgSubscribe, MsgUnsubscribe, MsgJoinRoom, MsgLeaveRoom, MsgPing:
		return t
	}
	for feature := range stream.Features {
		if t == feature+featureSubscribeSuffix || t == feature+featureUnsubscribeSuffix {
			return t
		}
	}
	return "unknown"
}
