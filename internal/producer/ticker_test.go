// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/pulseboard/internal/models"
	"github.com/tomtom215/pulseboard/internal/stream"
)

type emitted struct {
	room string
	env  stream.Envelope
}

type recordingEmitter struct {
	mu   sync.Mutex
	envs []emitted
	ch   chan emitted
}

func (r *recordingEmitter) Emit(room string, env stream.Envelope) int {
	r.mu.Lock()
	r.envs = append(r.envs, emitted{room, env})
	r.mu.Unlock()
	if r.ch != nil {
		select {
		case r.ch <- emitted{room, env}:
		default:
		}
	}
	return 1
}

func (r *recordingEmitter) take() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.envs
	r.envs = nil
	return out
}

func kinds(envs []emitted) []stream.Kind {
	out := make([]stream.Kind, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.env.Kind)
	}
	return out
}

func TestTickerDeltaAndResync(t *testing.T) {
	src := &fakeSource{kpis: models.KPISnapshot{DailyActivePractitioners: 1}}
	p, _ := newTestProducer(t, src, testConfig())
	em := &recordingEmitter{}
	tk := NewTicker(p, em, testConfig())
	st := &loopState{needInit: true}
	ctx := context.Background()

	// First tick is a full init.
	tk.tick(ctx, KindKPIs, st)
	got := em.take()
	if len(got) != 1 || got[0].env.Kind != stream.KindInit || got[0].room != stream.RoomKPIs {
		t.Fatalf("first tick emitted %v", kinds(got))
	}

	// Changed key becomes an update carrying only that key.
	src.set(2, nil)
	tk.tick(ctx, KindKPIs, st)
	got = em.take()
	if len(got) != 1 || got[0].env.Kind != stream.KindUpdate {
		t.Fatalf("second tick emitted %v", kinds(got))
	}
	partial, err := stream.ParseState(got[0].env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if keys := partial.Keys(); len(keys) != 1 || keys[0] != "daily_active_practitioners" {
		t.Errorf("update keys = %v", keys)
	}

	// Unchanged snapshot emits nothing.
	tk.tick(ctx, KindKPIs, st)
	if got = em.take(); len(got) != 0 {
		t.Fatalf("unchanged tick emitted %v", kinds(got))
	}

	// Fourth healthy tick resyncs with init (ResyncEvery = 4).
	tk.tick(ctx, KindKPIs, st)
	got = em.take()
	if len(got) != 1 || got[0].env.Kind != stream.KindInit {
		t.Fatalf("resync tick emitted %v", kinds(got))
	}
}

func TestTickerDegradedEmitsErrorAndRecovers(t *testing.T) {
	src := &fakeSource{}
	p, _ := newTestProducer(t, src, testConfig())
	em := &recordingEmitter{}
	tk := NewTicker(p, em, testConfig())
	st := &loopState{needInit: true}
	ctx := context.Background()

	tk.tick(ctx, KindKPIs, st)
	em.take()

	src.set(0, errors.New("connection refused"))
	tk.tick(ctx, KindKPIs, st)
	got := em.take()
	if len(got) != 1 || got[0].env.Kind != stream.KindError {
		t.Fatalf("degraded tick emitted %v, want one error envelope", kinds(got))
	}
	ev, err := stream.Decode(got[0].env)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ev.(stream.Error); !ok {
		t.Errorf("decoded %T, want stream.Error", ev)
	}

	// The next tick attempts normally and resynchronizes with a full init.
	src.set(3, nil)
	tk.tick(ctx, KindKPIs, st)
	got = em.take()
	if len(got) != 1 || got[0].env.Kind != stream.KindInit {
		t.Fatalf("recovery tick emitted %v, want init", kinds(got))
	}
}

func TestTickerHealthAlerts(t *testing.T) {
	sampler := &fakeSampler{health: models.SystemHealth{CPU: models.CPUMetrics{UsagePercent: 90}}}
	cfg := testConfig()
	p := New(nil, sampler, cfg)
	em := &recordingEmitter{}
	tk := NewTicker(p, em, cfg)
	st := &loopState{needInit: true}

	tk.tick(context.Background(), KindHealth, st)
	got := em.take()
	if len(got) != 2 {
		t.Fatalf("emitted %v, want init + alert", kinds(got))
	}
	if got[1].room != stream.RoomSystemAlerts || got[1].env.Kind != stream.KindAlert {
		t.Errorf("second envelope = %s/%s", got[1].room, got[1].env.Kind)
	}

	// Same alert inside the suppression window is not re-emitted.
	tk.tick(context.Background(), KindHealth, st)
	for _, e := range em.take() {
		if e.room == stream.RoomSystemAlerts {
			t.Error("alert should be suppressed")
		}
	}
}

func TestTickerRunWithContext(t *testing.T) {
	cfg := testConfig()
	cfg.KPIInterval = 10 * time.Millisecond
	cfg.DashboardInterval = 0
	cfg.HealthInterval = 0
	cfg.CommunityInterval = 0
	p, _ := newTestProducer(t, &fakeSource{}, cfg)
	em := &recordingEmitter{ch: make(chan emitted, 16)}
	tk := NewTicker(p, em, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.RunWithContext(ctx) }()

	select {
	case e := <-em.ch:
		if e.env.Kind != stream.KindInit {
			t.Errorf("first emit kind = %s, want init", e.env.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not emit")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
}
