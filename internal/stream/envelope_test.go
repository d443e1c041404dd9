// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"init object", `{"topic":"bi-kpis","kind":"init","payload":{"count":5}}`, nil},
		{"alert scalar", `{"topic":"system-alerts","kind":"alert","payload":"disk full"}`, nil},
		{"update array", `{"topic":"bi-kpis","kind":"update","payload":[1,2]}`, ErrPayloadNotObject},
		{"unknown kind", `{"topic":"bi-kpis","kind":"delta","payload":{}}`, ErrUnknownKind},
		{"bad room", `{"topic":"BI KPIs","kind":"init","payload":{}}`, ErrInvalidRoom},
		{"missing payload", `{"topic":"bi-kpis","kind":"init"}`, ErrMissingPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.frame))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := ParseEnvelope([]byte("not-json")); err == nil {
		t.Error("expected decode error for non-JSON frame")
	}
}

func TestDecodeDispatchesByKind(t *testing.T) {
	t.Parallel()

	frames := map[Kind]string{
		KindInit:   `{"topic":"bi-kpis","kind":"init","payload":{"count":5,"users":10}}`,
		KindUpdate: `{"topic":"bi-kpis","kind":"update","payload":{"count":6}}`,
		KindAlert:  `{"topic":"system-alerts","kind":"alert","payload":{"type":"memory"}}`,
		KindError:  `{"topic":"bi-kpis","kind":"error","payload":{"error":"db down"}}`,
	}

	for kind, frame := range frames {
		env, err := ParseEnvelope([]byte(frame))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		ev, err := Decode(env)
		if err != nil {
			t.Fatalf("%s: decode: %v", kind, err)
		}

		switch e := ev.(type) {
		case Init:
			if kind != KindInit || len(e.Snapshot) != 2 {
				t.Errorf("unexpected init decode for %s: %+v", kind, e)
			}
		case Update:
			if kind != KindUpdate || string(e.Partial["count"]) != "6" {
				t.Errorf("unexpected update decode for %s: %+v", kind, e)
			}
		case Alert:
			if kind != KindAlert || e.Topic != RoomSystemAlerts {
				t.Errorf("unexpected alert decode for %s: %+v", kind, e)
			}
		case Error:
			if kind != KindError || e.EventTopic() != RoomKPIs {
				t.Errorf("unexpected error decode for %s: %+v", kind, e)
			}
		default:
			t.Errorf("unexpected event type %T", ev)
		}
	}
}

func TestNewEnvelopeRejectsInvalid(t *testing.T) {
	t.Parallel()

	if _, err := NewEnvelope("bi-kpis", KindInit, []int{1}); !errors.Is(err, ErrPayloadNotObject) {
		t.Errorf("expected ErrPayloadNotObject, got %v", err)
	}
	if _, err := NewEnvelope("", KindInit, map[string]int{}); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("expected ErrInvalidRoom, got %v", err)
	}
}

func TestSnapshotErrorEnvelope(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Kind:        "kpis",
		Room:        RoomKPIs,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Degraded:    true,
		Reason:      "database unavailable",
	}
	env, err := snap.ErrorEnvelope()
	if err != nil {
		t.Fatalf("ErrorEnvelope: %v", err)
	}
	if env.Kind != KindError || env.Topic != RoomKPIs {
		t.Fatalf("unexpected envelope %+v", env)
	}

	var diag Diagnostic
	if err := json.Unmarshal(env.Payload, &diag); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if diag.Error != "database unavailable" || diag.Kind != "kpis" {
		t.Errorf("unexpected diagnostic %+v", diag)
	}
}
