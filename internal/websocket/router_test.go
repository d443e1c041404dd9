// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/stream"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func testStreamConfig() config.StreamConfig {
	return config.StreamConfig{
		IdleTimeout:  time.Minute,
		ReapInterval: 10 * time.Millisecond,
		SendBuffer:   64,
	}
}

func newTestRouter(t *testing.T, opts ...RouterOption) *Router {
	t.Helper()
	return NewRouter(testStreamConfig(), opts...)
}

func newRegistered(t *testing.T, r *Router, buffer int) *Session {
	t.Helper()
	s := NewSession(TransportDuplex, "127.0.0.1:1234", buffer)
	if err := r.Register(s); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return s
}

func mustJoin(t *testing.T, r *Router, s *Session, rooms ...string) {
	t.Helper()
	for _, room := range rooms {
		if err := r.Join(s.ID(), room); err != nil {
			t.Fatalf("Join(%s) error = %v", room, err)
		}
	}
}

func envelope(t *testing.T, room string, kind stream.Kind, payload interface{}) stream.Envelope {
	t.Helper()
	env, err := stream.NewEnvelope(room, kind, payload)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	return env
}

// drain returns every queued frame of s decoded as envelopes.
func drain(t *testing.T, s *Session) []stream.Envelope {
	t.Helper()
	var out []stream.Envelope
	for {
		select {
		case frame := <-s.Outbound():
			env, err := stream.ParseEnvelope(frame)
			if err != nil {
				t.Fatalf("ParseEnvelope(%s) error = %v", frame, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

type staticInit map[string]stream.Envelope

func (s staticInit) InitFor(room string) (stream.Envelope, bool) {
	env, ok := s[room]
	return env, ok
}

func TestEmitPreservesOrderWithinRoom(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 256)
	mustJoin(t, r, s, stream.RoomKPIs)

	for i := 0; i < 100; i++ {
		if n := r.Emit(stream.RoomKPIs, envelope(t, stream.RoomKPIs, stream.KindUpdate, map[string]int{"seq": i})); n != 1 {
			t.Fatalf("Emit delivered to %d sessions, want 1", n)
		}
	}

	got := drain(t, s)
	if len(got) != 100 {
		t.Fatalf("received %d envelopes, want 100", len(got))
	}
	for i, env := range got {
		want := fmt.Sprintf(`{"seq":%d}`, i)
		if string(env.Payload) != want {
			t.Fatalf("envelope %d payload = %s, want %s", i, env.Payload, want)
		}
	}
}

func TestEmitRoomIsolation(t *testing.T) {
	r := newTestRouter(t)
	a := newRegistered(t, r, 16)
	b := newRegistered(t, r, 16)
	mustJoin(t, r, a, stream.RoomKPIs)
	mustJoin(t, r, b, stream.RoomSystemMetrics)

	r.Emit(stream.RoomSystemMetrics, envelope(t, stream.RoomSystemMetrics, stream.KindInit, map[string]int{"cpu": 1}))
	r.Emit(stream.RoomInsights, envelope(t, stream.RoomInsights, stream.KindInit, map[string]int{"x": 1}))

	if got := drain(t, a); len(got) != 0 {
		t.Errorf("session in %s received %d foreign envelopes", stream.RoomKPIs, len(got))
	}
	got := drain(t, b)
	if len(got) != 1 || got[0].Topic != stream.RoomSystemMetrics {
		t.Errorf("session in %s received %+v", stream.RoomSystemMetrics, got)
	}
}

func TestJoinDeliversInitBeforeLaterEmits(t *testing.T) {
	initEnv := envelope(t, stream.RoomKPIs, stream.KindInit, map[string]int{"count": 5, "users": 10})
	r := newTestRouter(t, WithInitProvider(staticInit{stream.RoomKPIs: initEnv}))
	s := newRegistered(t, r, 16)

	mustJoin(t, r, s, stream.RoomKPIs)
	r.Emit(stream.RoomKPIs, envelope(t, stream.RoomKPIs, stream.KindUpdate, map[string]int{"count": 6}))

	got := drain(t, s)
	if len(got) != 2 {
		t.Fatalf("received %d envelopes, want 2", len(got))
	}
	if got[0].Kind != stream.KindInit || got[1].Kind != stream.KindUpdate {
		t.Errorf("kinds = %s, %s; want init, update", got[0].Kind, got[1].Kind)
	}

	// A repeated join neither duplicates membership nor re-sends init.
	mustJoin(t, r, s, stream.RoomKPIs)
	if got := drain(t, s); len(got) != 0 {
		t.Errorf("repeated join queued %d envelopes", len(got))
	}
	if members := r.Members(stream.RoomKPIs); len(members) != 1 {
		t.Errorf("members = %v", members)
	}
}

func TestJoinValidation(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 16)

	for _, room := range []string{"", "Bad Room", "bi--kpis", stream.RoomControl} {
		if err := r.Join(s.ID(), room); !errors.Is(err, stream.ErrInvalidRoom) {
			t.Errorf("Join(%q) error = %v, want ErrInvalidRoom", room, err)
		}
	}
	if err := r.Join("missing", stream.RoomKPIs); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Join on unknown session error = %v", err)
	}
}

func TestSlowConsumerIsClosed(t *testing.T) {
	r := newTestRouter(t)
	slow := newRegistered(t, r, 2)
	fast := newRegistered(t, r, 16)
	mustJoin(t, r, slow, stream.RoomKPIs)
	mustJoin(t, r, fast, stream.RoomKPIs)

	for i := 0; i < 3; i++ {
		r.Emit(stream.RoomKPIs, envelope(t, stream.RoomKPIs, stream.KindUpdate, map[string]int{"seq": i}))
	}

	if !slow.Closed() || slow.CloseReason() != ReasonSlowConsumer {
		t.Fatalf("slow session closed=%v reason=%q", slow.Closed(), slow.CloseReason())
	}
	if len(drain(t, fast)) != 3 {
		t.Error("fast session must keep receiving")
	}
	if members := r.Members(stream.RoomKPIs); len(members) != 1 || members[0] != fast.ID() {
		t.Errorf("members after slow close = %v", members)
	}

	// Further emits skip the closed session.
	if n := r.Emit(stream.RoomKPIs, envelope(t, stream.RoomKPIs, stream.KindUpdate, map[string]int{"seq": 9})); n != 1 {
		t.Errorf("Emit delivered %d, want 1", n)
	}
	stats := r.Stats().Rooms[stream.RoomKPIs]
	if stats.Dropped != 1 || stats.Published != 4 {
		t.Errorf("room stats = %+v", stats)
	}
}

func TestLeaveAndGarbageCollection(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 16)
	mustJoin(t, r, s, stream.RoomKPIs, stream.RoomInsights)

	if err := r.Leave(s.ID(), stream.RoomKPIs); err != nil {
		t.Fatal(err)
	}
	if rooms := r.Rooms(); len(rooms) != 1 || rooms[0] != stream.RoomInsights {
		t.Errorf("Rooms() = %v", rooms)
	}
	// Leaving a room twice is harmless.
	if err := r.Leave(s.ID(), stream.RoomKPIs); err != nil {
		t.Fatal(err)
	}

	left, err := r.LeaveAll(s.ID())
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0] != stream.RoomInsights {
		t.Errorf("LeaveAll() = %v", left)
	}
	if len(r.Rooms()) != 0 || len(s.Rooms()) != 0 {
		t.Error("rooms should be empty after LeaveAll")
	}
	if n := r.Emit(stream.RoomInsights, envelope(t, stream.RoomInsights, stream.KindInit, map[string]int{})); n != 0 {
		t.Errorf("Emit to empty room delivered %d", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 16)
	mustJoin(t, r, s, stream.RoomKPIs)

	r.Close(s.ID(), ReasonClientClosed)
	r.Close(s.ID(), ReasonIdleTimeout)

	if s.CloseReason() != ReasonClientClosed {
		t.Errorf("CloseReason() = %q, want first reason", s.CloseReason())
	}
	if r.SessionCount() != 0 || len(r.Members(stream.RoomKPIs)) != 0 {
		t.Error("closed session must leave every table")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestReapIdleSessions(t *testing.T) {
	r := newTestRouter(t)
	idle := newRegistered(t, r, 16)
	active := newRegistered(t, r, 16)
	mustJoin(t, r, idle, stream.RoomKPIs)

	now := time.Now().Add(90 * time.Second)
	active.lastSeen.Store(now.UnixNano())

	if n := r.Reap(now); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}
	if idle.CloseReason() != ReasonIdleTimeout {
		t.Errorf("idle session reason = %q", idle.CloseReason())
	}
	if active.Closed() {
		t.Error("active session must survive")
	}
	if len(r.Rooms()) != 0 {
		t.Errorf("reaped session still in rooms %v", r.Rooms())
	}
}

func TestRunWithContextShutdown(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunWithContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("router did not stop")
	}

	if s.CloseReason() != ReasonShutdown {
		t.Errorf("CloseReason() = %q, want shutdown", s.CloseReason())
	}
	if err := r.Register(NewSession(TransportDuplex, "", 1)); !errors.Is(err, ErrRouterClosed) {
		t.Errorf("Register after shutdown error = %v", err)
	}
}

func TestCloseAllKeepsRouterOpen(t *testing.T) {
	r := newTestRouter(t)
	a := newRegistered(t, r, 16)
	b := newRegistered(t, r, 16)
	mustJoin(t, r, a, stream.RoomKPIs)
	mustJoin(t, r, b, stream.RoomSystemMetrics)

	if n := r.CloseAll(ReasonShutdown); n != 2 {
		t.Fatalf("CloseAll() = %d, want 2", n)
	}
	if !a.Closed() || !b.Closed() || len(r.Rooms()) != 0 {
		t.Error("CloseAll must close every session and empty every room")
	}
	if err := r.Register(NewSession(TransportFallback, "", 1)); err != nil {
		t.Errorf("Register after CloseAll error = %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRouter(t)
	s := newRegistered(t, r, 16)
	if err := r.Register(s); !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("second Register error = %v", err)
	}
}

func TestStats(t *testing.T) {
	r := newTestRouter(t)
	a := newRegistered(t, r, 16)
	b := NewSession(TransportFallback, "", 16)
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}
	mustJoin(t, r, a, stream.RoomKPIs)
	mustJoin(t, r, b, stream.RoomKPIs)
	r.Emit(stream.RoomKPIs, envelope(t, stream.RoomKPIs, stream.KindInit, map[string]int{"n": 1}))

	st := r.Stats()
	if st.Sessions != 2 || st.ByTransport[TransportDuplex] != 1 || st.ByTransport[TransportFallback] != 1 {
		t.Errorf("session stats = %+v", st)
	}
	rs := st.Rooms[stream.RoomKPIs]
	if rs.Members != 2 || rs.Published != 1 || rs.Delivered != 2 {
		t.Errorf("room stats = %+v", rs)
	}
}
