// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/models"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// Emitter delivers an envelope to every session joined to room and returns
// how many sessions received it. The websocket Router implements it.
type Emitter interface {
	Emit(room string, env stream.Envelope) int
}

// Ticker periodically produces every kind and emits the result.
type Ticker struct {
	producer    *Producer
	emitter     Emitter
	intervals   map[string]time.Duration
	resyncEvery int
	alerts      *AlertEvaluator
	now         func() time.Time
	log         zerolog.Logger
}

// NewTicker creates a ticker from the producer configuration. Kinds with a
// non-positive interval are not ticked.
func NewTicker(p *Producer, emitter Emitter, cfg config.ProducerConfig) *Ticker {
	resync := cfg.ResyncEvery
	if resync <= 0 {
		resync = 1
	}
	return &Ticker{
		producer: p,
		emitter:  emitter,
		intervals: map[string]time.Duration{
			KindKPIs:      cfg.KPIInterval,
			KindDashboard: cfg.DashboardInterval,
			KindHealth:    cfg.HealthInterval,
			KindCommunity: cfg.CommunityInterval,
		},
		resyncEvery: resync,
		alerts:      NewAlertEvaluator(cfg.Thresholds, cfg.AlertSuppression),
		now:         p.now,
		log:         logging.WithComponent("snapshot-ticker"),
	}
}

// loopState is the per-kind emit state. It is owned by one loop goroutine.
type loopState struct {
	ticks    int
	prev     stream.State
	needInit bool
}

// RunWithContext runs one loop per kind until ctx is canceled.
func (t *Ticker) RunWithContext(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds() {
		interval := t.intervals[kind]
		if interval <= 0 {
			continue
		}
		kind := kind
		g.Go(func() error {
			t.loop(gctx, kind, interval)
			return nil
		})
	}
	t.log.Info().Int("resync_every", t.resyncEvery).Msg("Snapshot ticker started")
	err := g.Wait()
	t.log.Info().Msg("Snapshot ticker stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (t *Ticker) loop(ctx context.Context, kind string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	st := &loopState{needInit: true}
	t.tick(ctx, kind, st)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx, kind, st)
		}
	}
}

// tick produces kind once and emits the matching envelope: error when
// degraded, init on the first tick, after a degraded tick and every
// resyncEvery ticks, otherwise an update with the changed top-level keys
// (nothing when unchanged).
func (t *Ticker) tick(ctx context.Context, kind string, st *loopState) {
	snap, err := t.producer.Produce(ctx, kind)
	if err != nil {
		t.log.Error().Err(err).Str("kind", kind).Msg("Ticker produce failed")
		return
	}

	if snap.Degraded {
		env, err := snap.ErrorEnvelope()
		if err != nil {
			t.log.Warn().Err(err).Str("kind", kind).Msg("Failed to encode error envelope")
			return
		}
		t.emitter.Emit(snap.Room, env)
		st.needInit = true
		return
	}

	st.ticks++
	var env stream.Envelope
	if st.needInit || st.prev == nil || st.ticks%t.resyncEvery == 0 {
		env, err = snap.InitEnvelope()
		st.needInit = false
	} else {
		delta := stream.Diff(st.prev, snap.Data)
		if len(delta) == 0 {
			st.prev = snap.Data
			t.checkAlerts(kind, snap)
			return
		}
		env, err = stream.NewEnvelope(snap.Room, stream.KindUpdate, delta)
	}
	if err != nil {
		t.log.Warn().Err(err).Str("kind", kind).Msg("Failed to encode snapshot envelope")
		return
	}
	st.prev = snap.Data
	delivered := t.emitter.Emit(snap.Room, env)
	t.log.Trace().Str("kind", kind).Str("envelope", string(env.Kind)).Int("delivered", delivered).Msg("Tick emitted")

	t.checkAlerts(kind, snap)
}

func (t *Ticker) checkAlerts(kind string, snap stream.Snapshot) {
	if kind != KindHealth {
		return
	}
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		return
	}
	var h models.SystemHealth
	if err := json.Unmarshal(raw, &h); err != nil {
		t.log.Warn().Err(err).Msg("Failed to decode health snapshot for alerting")
		return
	}
	for _, alert := range t.alerts.Evaluate(h, t.now()) {
		env, err := stream.NewEnvelope(stream.RoomSystemAlerts, stream.KindAlert, alert)
		if err != nil {
			continue
		}
		t.emitter.Emit(stream.RoomSystemAlerts, env)
		t.log.Warn().Str("alert_type", alert.AlertType).Str("severity", alert.Severity).Msg(alert.Message)
	}
}
