// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package stream

import "time"

// Snapshot is an immutable point-in-time aggregate. Data is the full
// payload; when Degraded is set, Data may hold the last known good value
// (or zero values) and Reason explains the failure.
type Snapshot struct {
	Kind        string    `json:"kind"`
	Room        string    `json:"room"`
	GeneratedAt time.Time `json:"generated_at"`
	Data        State     `json:"data"`
	Degraded    bool      `json:"degraded"`
	Reason      string    `json:"reason,omitempty"`
}

// Diagnostic is the payload of an error-kind envelope produced for a degraded snapshot.
type Diagnostic struct {
	Kind        string    `json:"kind"`
	Error       string    `json:"error"`
	GeneratedAt time.Time `json:"generated_at"`
	Stale       State     `json:"stale,omitempty"`
}

// InitEnvelope returns the full-refresh envelope for a healthy snapshot.
func (s Snapshot) InitEnvelope() (Envelope, error) {
	return NewEnvelope(s.Room, KindInit, s.Data)
}

// ErrorEnvelope returns the error-kind envelope describing a degraded snapshot.
func (s Snapshot) ErrorEnvelope() (Envelope, error) {
	return NewEnvelope(s.Room, KindError, Diagnostic{
		Kind:        s.Kind,
		Error:       s.Reason,
		GeneratedAt: s.GeneratedAt,
		Stale:       s.Data,
	})
}
