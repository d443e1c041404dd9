// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/pulseboard/internal/cache"
	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/models"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// AggregateSource is the read-only query surface of the aggregate store.
// *database.DB implements it.
type AggregateSource interface {
	KPIs(ctx context.Context, now time.Time) (models.KPISnapshot, error)
	DashboardStats(ctx context.Context, now time.Time) (models.DashboardStats, error)
	CommunityFeed(ctx context.Context, now time.Time, limit int) (models.CommunityFeed, error)
}

// BreakerName is the circuit breaker label used in metrics.
const BreakerName = "aggregate-store"

// Producer computes snapshots. It is safe for concurrent use.
type Producer struct {
	source  AggregateSource
	sampler HealthSampler
	cfg     config.ProducerConfig
	now     func() time.Time

	cache   *cache.Cache[stream.Snapshot]
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker[stream.State]

	mu     sync.RWMutex
	latest map[string]stream.Snapshot
}

// Option configures a Producer.
type Option func(*Producer)

// WithClock overrides the clock used for snapshot timestamps and the cache.
func WithClock(now func() time.Time) Option {
	return func(p *Producer) { p.now = now }
}

// New creates a Producer. source or sampler may be nil, in which case the
// kinds they serve are always degraded.
func New(source AggregateSource, sampler HealthSampler, cfg config.ProducerConfig, opts ...Option) *Producer {
	p := &Producer{
		source:  source,
		sampler: sampler,
		cfg:     cfg,
		now:     time.Now,
		latest:  make(map[string]stream.Snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = cache.NewWithClock[stream.Snapshot](cfg.CacheTTL, p.now)
	p.breaker = newBreaker(cfg.Breaker)
	return p
}

func newBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker[stream.State] {
	metrics.SetCircuitBreakerState(BreakerName, 0)

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[stream.State](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.SetCircuitBreakerState(name, stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Produce returns the current snapshot for kind. Store failures never
// surface as errors: the snapshot comes back Degraded with a Reason. The
// only error is ErrUnknownKind.
func (p *Producer) Produce(ctx context.Context, kind string) (stream.Snapshot, error) {
	room, ok := RoomFor(kind)
	if !ok {
		return stream.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if snap, hit := p.cache.Get(kind); hit {
		metrics.RecordCache(kind, true)
		return snap, nil
	}
	metrics.RecordCache(kind, false)

	// The shared call must not die with whichever caller arrived first.
	qctx := context.WithoutCancel(ctx)
	v, _, _ := p.group.Do(kind, func() (interface{}, error) {
		return p.produce(qctx, kind, room), nil
	})
	return v.(stream.Snapshot), nil
}

func (p *Producer) produce(ctx context.Context, kind, room string) stream.Snapshot {
	start := time.Now()
	now := p.now().UTC()

	if p.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.QueryTimeout)
		defer cancel()
	}

	var data stream.State
	var err error
	if kind == KindHealth {
		data, err = p.sampleHealth(ctx)
	} else {
		data, err = p.breaker.Execute(func() (stream.State, error) {
			return p.query(ctx, kind, now)
		})
	}

	if err != nil {
		snap := p.degraded(kind, room, now, err)
		metrics.RecordProduce(kind, time.Since(start), true)
		logging.Warn().Err(err).Str("kind", kind).Bool("stale", snap.Data != nil).Msg("Producing degraded snapshot")
		return snap
	}

	snap := stream.Snapshot{Kind: kind, Room: room, GeneratedAt: now, Data: data}
	p.mu.Lock()
	p.latest[kind] = snap
	p.mu.Unlock()
	p.cache.Set(kind, snap)
	metrics.RecordProduce(kind, time.Since(start), false)
	return snap
}

func (p *Producer) query(ctx context.Context, kind string, now time.Time) (stream.State, error) {
	if p.source == nil {
		return nil, errors.New("aggregate store not configured")
	}
	switch kind {
	case KindKPIs:
		kpis, err := p.source.KPIs(ctx, now)
		if err != nil {
			return nil, err
		}
		return stream.StateOf(kpis)
	case KindDashboard:
		stats, err := p.source.DashboardStats(ctx, now)
		if err != nil {
			return nil, err
		}
		return stream.StateOf(stats)
	case KindCommunity:
		feed, err := p.source.CommunityFeed(ctx, now, p.cfg.RecentLimit)
		if err != nil {
			return nil, err
		}
		return stream.StateOf(feed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (p *Producer) sampleHealth(ctx context.Context) (stream.State, error) {
	if p.sampler == nil {
		return nil, errors.New("health sampler not configured")
	}
	h, err := p.sampler.Sample(ctx)
	if err != nil {
		return nil, err
	}
	EvaluateHealth(&h, p.cfg.Thresholds)
	return stream.StateOf(h)
}

// degraded builds a failure snapshot. It carries the last good data when
// there is one; KPIs without history fall back to zeroed placeholder values.
func (p *Producer) degraded(kind, room string, now time.Time, cause error) stream.Snapshot {
	snap := stream.Snapshot{
		Kind:        kind,
		Room:        room,
		GeneratedAt: now,
		Degraded:    true,
		Reason:      cause.Error(),
	}
	if last, ok := p.Latest(kind); ok {
		snap.Data = last.Data.Clone()
	} else if kind == KindKPIs {
		if placeholder, err := stream.StateOf(models.PlaceholderKPIs(now)); err == nil {
			snap.Data = placeholder
		}
	}
	return snap
}

// Latest returns the last healthy snapshot of kind.
func (p *Producer) Latest(kind string) (stream.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.latest[kind]
	return snap, ok
}

// InitFor returns a full init envelope for room built from the last healthy
// snapshot. It never queries the store, so it is safe to call while holding
// router locks.
func (p *Producer) InitFor(room string) (stream.Envelope, bool) {
	kind, ok := KindForRoom(room)
	if !ok {
		return stream.Envelope{}, false
	}
	snap, ok := p.Latest(kind)
	if !ok {
		return stream.Envelope{}, false
	}
	env, err := snap.InitEnvelope()
	if err != nil {
		logging.Warn().Err(err).Str("room", room).Msg("Failed to build init envelope")
		return stream.Envelope{}, false
	}
	return env, true
}

// Stats describes producer cache and breaker state.
type Stats struct {
	Cache   cache.Stats `json:"cache"`
	HitRate float64     `json:"hit_rate"`
	Breaker string      `json:"breaker"`
}

// Stats returns cache statistics and the breaker state.
func (p *Producer) Stats() Stats {
	cs := p.cache.Stats()
	return Stats{Cache: cs, HitRate: cs.HitRate(), Breaker: p.breaker.State().String()}
}
