// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/models"
	"github.com/tomtom215/pulseboard/internal/stream"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []stream.Envelope
}

func (e *recordingEmitter) Emit(_ string, env stream.Envelope) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, env)
	return 1
}

func (e *recordingEmitter) envelopes() []stream.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]stream.Envelope(nil), e.sent...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.CommunityActivity
	err     error
}

func (r *fakeRecorder) RecordCommunityActivity(_ context.Context, a models.CommunityActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, a)
	return r.err
}

func envelope(t *testing.T, topic string, kind stream.Kind, payload interface{}) stream.Envelope {
	t.Helper()
	env, err := stream.NewEnvelope(topic, kind, payload)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	return env
}

func encode(t *testing.T, env stream.Envelope) []byte {
	t.Helper()
	data, err := env.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestThrottle(t *testing.T) {
	th := NewThrottle(500 * time.Millisecond)
	steps := []struct {
		key    string
		offset time.Duration
		want   bool
	}{
		{"practice_completed", 0, true},
		{"practice_completed", 100 * time.Millisecond, false},
		{"milestone", 100 * time.Millisecond, true},
		{"practice_completed", 499 * time.Millisecond, false},
		{"practice_completed", 500 * time.Millisecond, true},
		{"milestone", 200 * time.Millisecond, false},
	}
	for i, s := range steps {
		if got := th.Allow(s.key, testNow.Add(s.offset)); got != s.want {
			t.Errorf("step %d Allow(%s, +%v) = %v, want %v", i, s.key, s.offset, got, s.want)
		}
	}
	if th.Keys() != 2 {
		t.Errorf("Keys() = %d, want 2", th.Keys())
	}

	open := NewThrottle(0)
	for i := 0; i < 5; i++ {
		if !open.Allow("x", testNow) {
			t.Fatal("zero interval throttle rejected an event")
		}
	}
}

func TestForwarderHandle(t *testing.T) {
	now := testNow
	emitter := &recordingEmitter{}
	recorder := &fakeRecorder{}
	f := NewForwarder(nil, "pulseboard.events", emitter,
		WithRecorder(recorder),
		WithCommunityThrottle(500*time.Millisecond),
		WithNow(func() time.Time { return now }))
	ctx := context.Background()

	activity := func(typ string) []byte {
		return encode(t, envelope(t, stream.RoomCommunityStream, stream.KindAlert,
			models.CommunityActivity{UserID: "u1", ActivityType: typ, Summary: "finished a session"}))
	}

	tests := []struct {
		name    string
		payload []byte
		advance time.Duration
		want    string
	}{
		{"kpi update passes", encode(t, envelope(t, stream.RoomKPIs, stream.KindUpdate, map[string]int{"active_users": 4})), 0, ResultForwarded},
		{"first activity of a type", activity("practice_completed"), 0, ResultForwarded},
		{"same type within window", activity("practice_completed"), 100 * time.Millisecond, ResultThrottled},
		{"other type", activity("milestone"), 0, ResultForwarded},
		{"same type after window", activity("practice_completed"), 500 * time.Millisecond, ResultForwarded},
		{"community feed without activity type", encode(t, envelope(t, stream.RoomCommunityStream, stream.KindUpdate, map[string]int{"total_24h": 3})), 0, ResultForwarded},
		{"not json", []byte("{"), 0, ResultInvalid},
		{"bad room", []byte(`{"topic":"Bad Room","kind":"alert","payload":1}`), 0, ResultInvalid},
		{"unknown kind", []byte(`{"topic":"bi-kpis","kind":"patch","payload":{}}`), 0, ResultInvalid},
	}
	for _, tt := range tests {
		now = now.Add(tt.advance)
		if got := f.Handle(ctx, tt.payload); got != tt.want {
			t.Errorf("%s: Handle() = %q, want %q", tt.name, got, tt.want)
		}
	}

	if got := len(emitter.envelopes()); got != 5 {
		t.Errorf("emitted %d envelopes, want 5", got)
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.records) != 3 {
		t.Fatalf("recorded %d activities, want 3", len(recorder.records))
	}
	for _, r := range recorder.records {
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Errorf("recorded activity missing defaults: %+v", r)
		}
	}
}

func TestForwarderRecorderFailureStillEmits(t *testing.T) {
	emitter := &recordingEmitter{}
	f := NewForwarder(nil, "t", emitter, WithRecorder(&fakeRecorder{err: errors.New("disk full")}))
	payload := encode(t, envelope(t, stream.RoomCommunityStream, stream.KindAlert,
		models.CommunityActivity{ActivityType: "milestone"}))
	if got := f.Handle(context.Background(), payload); got != ResultForwarded {
		t.Errorf("Handle() = %q, want %q", got, ResultForwarded)
	}
	if len(emitter.envelopes()) != 1 {
		t.Error("envelope not emitted after recorder failure")
	}
}

func TestPublisherRejectsInvalidEnvelope(t *testing.T) {
	bus, err := NewBus(config.IngestConfig{Backend: config.IngestBackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	defer bus.Close()

	pub := NewPublisher(bus.Publisher(), "pulseboard.events")
	bad := stream.Envelope{Topic: stream.RoomKPIs, Kind: stream.KindInit, Payload: []byte(`[1]`)}
	if _, err := pub.Publish(context.Background(), bad); !errors.Is(err, stream.ErrPayloadNotObject) {
		t.Errorf("Publish() error = %v, want %v", err, stream.ErrPayloadNotObject)
	}
}

// roundTrip runs a forwarder on bus and publishes until the envelope arrives.
// Subscriptions on both backends are established asynchronously, so early
// publishes may be lost.
func roundTrip(t *testing.T, bus *Bus) {
	t.Helper()
	const topic = "pulseboard.events"
	emitter := &recordingEmitter{}
	fwd := NewForwarder(bus.Subscriber(), topic, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- fwd.RunWithContext(ctx) }()

	pub := NewPublisher(bus.Publisher(), topic)
	env := envelope(t, stream.RoomSystemMetrics, stream.KindUpdate, map[string]float64{"cpu_percent": 42.5})

	deadline := time.Now().Add(5 * time.Second)
	for len(emitter.envelopes()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("envelope never forwarded")
		}
		if _, err := pub.Publish(ctx, env); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	got := emitter.envelopes()[0]
	if got.Topic != env.Topic || got.Kind != env.Kind || string(got.Payload) != string(env.Payload) {
		t.Errorf("forwarded %+v, want %+v", got, env)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("forwarder did not stop")
	}
}

func TestMemoryBusRoundTrip(t *testing.T) {
	bus, err := NewBus(config.IngestConfig{Backend: config.IngestBackendMemory})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer bus.Close()
	if bus.Backend() != config.IngestBackendMemory {
		t.Errorf("Backend() = %q", bus.Backend())
	}
	roundTrip(t, bus)
}

func TestNATSBusRoundTripWithEmbeddedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}
	bus, err := NewBus(config.IngestConfig{
		Backend:        config.IngestBackendNATS,
		EmbeddedServer: true,
		StoreDir:       t.TempDir(),
		QueueGroup:     "pulseboard-test",
	})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	if bus.Server() == nil || !bus.Server().Running() {
		t.Fatal("embedded server not running")
	}
	roundTrip(t, bus)

	if err := bus.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if bus.Server().Running() {
		t.Error("embedded server still running after Close")
	}
}

func TestNewBusUnknownBackend(t *testing.T) {
	if _, err := NewBus(config.IngestConfig{Backend: "kafka"}); err == nil {
		t.Error("NewBus() error = nil, want error")
	}
}
