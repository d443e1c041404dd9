// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

var (
	// ErrHandleClosed is returned by Subscribe after Disconnect.
	ErrHandleClosed = errors.New("stream handle disconnected")

	// ErrNoRooms is returned by Subscribe when no room names are given.
	ErrNoRooms = errors.New("no rooms to subscribe")
)

// Handlers receive inbound events. Any field may be nil. Handlers run on the
// connection goroutine and must not block for long.
type Handlers struct {
	OnInit   func(topic string, snapshot stream.State)
	OnUpdate func(topic string, merged, partial stream.State)
	OnAlert  func(topic string, data json.RawMessage)
	OnError  func(topic string, data json.RawMessage)
	OnStatus func(status Status, err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTransport overrides transport selection.
func WithTransport(t Transport) Option {
	return func(m *Manager) { m.transport = t }
}

// WithClock replaces the clock used for retry timers.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithDeepMerge makes updates to the named fields of topic merge nested
// objects recursively instead of replacing them.
func WithDeepMerge(topic string, fields ...string) Option {
	return func(m *Manager) {
		if m.deep[topic] == nil {
			m.deep[topic] = make(map[string]bool, len(fields))
		}
		for _, f := range fields {
			m.deep[topic][f] = true
		}
	}
}

// Manager creates stream handles over a single transport.
type Manager struct {
	cfg       config.ClientConfig
	transport Transport
	clock     Clock
	deep      map[string]map[string]bool

	mu     sync.Mutex
	active *Handle
}

// New builds a manager for cfg. The transport is chosen here from
// cfg.Transport unless WithTransport is given.
func New(cfg config.ClientConfig, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:   cfg,
		clock: RealClock,
		deep:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.transport == nil {
		t, err := selectTransport(cfg)
		if err != nil {
			return nil, err
		}
		m.transport = t
	}
	return m, nil
}

func selectTransport(cfg config.ClientConfig) (Transport, error) {
	switch cfg.Transport {
	case config.TransportWebSocket:
		return NewWebSocketTransport(cfg)
	case config.TransportSSE:
		return NewSSETransport(cfg)
	case config.TransportAuto, "":
		ws, err := NewWebSocketTransport(cfg)
		if err != nil {
			return nil, err
		}
		sse, err := NewSSETransport(cfg)
		if err != nil {
			return nil, err
		}
		return newAutoTransport(ws, sse), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoTransport, cfg.Transport)
	}
}

// Transport returns the name of the transport in use.
func (m *Manager) Transport() string {
	return m.transport.Name()
}

// Connect starts a handle and begins connecting in the background. Only one
// handle may be live per manager.
func (m *Manager) Connect(handlers Handlers) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && !m.active.isClosed() {
		return nil, ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		m:        m,
		handlers: handlers,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		status:   StatusConnecting,
		state:    make(map[string]stream.State),
		rooms:    make(map[string]int),
		backoff:  NewBackoff(m.cfg.ReconnectBase, m.cfg.ReconnectCeiling),
	}
	m.active = h
	go h.run()
	return h, nil
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == h {
		m.active = nil
	}
}

// Handle is one live connection lifecycle: the mirrored state, the room
// set and the reconnect controller.
type Handle struct {
	m        *Manager
	handlers Handlers
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wake     chan struct{}

	mu          sync.Mutex
	status      Status
	err         error
	state       map[string]stream.State
	rooms       map[string]int
	conn        Conn
	timer       Timer
	backoff     *Backoff
	closed      bool
	skipBackoff bool
}

// Status returns the current connection status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the error that caused the last disconnect, or nil once a
// connection succeeds.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// State returns a copy of the merged state for topic.
func (h *Handle) State(topic string) (stream.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.state[topic]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Rooms returns the subscribed rooms in sorted order.
func (h *Handle) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roomSetLocked()
}

// Done is closed when the connection goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) roomSetLocked() []string {
	out := make([]string, 0, len(h.rooms))
	for r := range h.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Subscription is a reference on a set of rooms.
type Subscription struct {
	h     *Handle
	rooms []string
	once  sync.Once
}

// Rooms returns the rooms this subscription holds.
func (s *Subscription) Rooms() []string {
	out := make([]string, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// Subscribe adds rooms to the watched set. Rooms are reference counted
// across subscriptions; only rooms new to the set reach the server.
func (h *Handle) Subscribe(rooms ...string) (*Subscription, error) {
	norm, err := stream.NormalizeRooms(rooms)
	if err != nil {
		return nil, err
	}
	if len(norm) == 0 {
		return nil, ErrNoRooms
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	var added []string
	for _, r := range norm {
		if h.rooms[r] == 0 {
			added = append(added, r)
		}
		h.rooms[r]++
	}
	conn := h.conn
	h.mu.Unlock()

	if len(added) > 0 {
		select {
		case h.wake <- struct{}{}:
		default:
		}
	}
	if conn != nil && len(added) > 0 {
		h.push(conn, added, true)
	}
	return &Subscription{h: h, rooms: norm}, nil
}

// Unsubscribe releases the subscription. Rooms no longer held by any
// subscription are left on the server and their mirrored state is dropped.
// Calling it more than once has no effect.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		h := s.h
		h.mu.Lock()
		var removed []string
		for _, r := range s.rooms {
			h.rooms[r]--
			if h.rooms[r] <= 0 {
				delete(h.rooms, r)
				delete(h.state, r)
				removed = append(removed, r)
			}
		}
		conn, closed := h.conn, h.closed
		h.mu.Unlock()

		if !closed && conn != nil && len(removed) > 0 {
			h.push(conn, removed, false)
		}
	})
}

func (h *Handle) push(conn Conn, rooms []string, join bool) {
	var err error
	if join {
		err = conn.Subscribe(rooms)
	} else {
		err = conn.Unsubscribe(rooms)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrJoinUnsupported):
		h.redial(conn)
	default:
		logging.Warn().Err(err).Strs("rooms", rooms).Bool("join", join).
			Msg("Stream control message failed, reconnecting")
		_ = conn.Close()
	}
}

// redial drops conn without backoff so the next dial carries the current
// room set.
func (h *Handle) redial(conn Conn) {
	h.mu.Lock()
	if h.closed || h.conn != conn {
		h.mu.Unlock()
		return
	}
	h.skipBackoff = true
	h.mu.Unlock()
	_ = conn.Close()
}

// Disconnect tears the handle down: the pending retry timer is stopped and
// the connection is closed before it returns. It is safe to call repeatedly.
func (h *Handle) Disconnect() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	conn := h.conn
	h.conn = nil
	h.status = StatusDisconnected
	h.cancel()
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	h.m.release(h)
}

func (h *Handle) run() {
	defer close(h.done)
	for {
		if !h.awaitRooms() {
			return
		}
		if !h.setStatus(StatusConnecting, nil, false) {
			return
		}
		conn, dialed, err := h.dial()
		if err == nil {
			err = h.serve(conn, dialed)
		}
		if h.ctx.Err() != nil {
			return
		}
		h.detach(conn, err)
		if !h.waitRetry() {
			return
		}
	}
}

// awaitRooms holds a handle on a non-duplex transport while its room set is
// empty. A fallback stream dialed without rooms would carry the server's
// default rooms, none of which the handle wants. It returns false once the
// handle is torn down.
func (h *Handle) awaitRooms() bool {
	for {
		if h.m.transport.Duplex() {
			return true
		}
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return false
		}
		idle := len(h.rooms) == 0
		changed := idle && h.status != StatusDisconnected
		if changed {
			h.status = StatusDisconnected
		}
		h.mu.Unlock()
		if !idle {
			return true
		}
		if changed {
			h.notifyStatus(StatusDisconnected, nil)
		}

		select {
		case <-h.wake:
		case <-h.ctx.Done():
			return false
		}
	}
}

func (h *Handle) dial() (Conn, []string, error) {
	h.mu.Lock()
	rooms := h.roomSetLocked()
	h.mu.Unlock()

	timeout := handshakeTimeout(h.m.cfg)
	ctx, cancel := context.WithTimeout(h.ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := h.m.transport.Dial(ctx, rooms)
	metrics.RecordReconnectAttempt(h.m.transport.Name(), err)
	if err != nil {
		logging.Debug().Err(err).Str("transport", h.m.transport.Name()).
			Dur("elapsed", time.Since(start)).Msg("Stream dial failed")
		return nil, nil, err
	}
	return conn, rooms, nil
}

// serve attaches conn and reads from it until it fails.
func (h *Handle) serve(conn Conn, dialed []string) error {
	duplex := h.m.transport.Duplex()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHandleClosed
	}
	h.conn = conn
	h.status = StatusConnected
	h.err = nil
	h.backoff.Reset()
	rooms := h.roomSetLocked()
	stale := !duplex && !equalRooms(dialed, rooms)
	h.mu.Unlock()

	logging.Info().Str("transport", h.m.transport.Name()).Strs("rooms", rooms).Msg("Stream connected")
	h.notifyStatus(StatusConnected, nil)

	switch {
	case duplex && len(rooms) > 0:
		h.push(conn, rooms, true)
	case stale:
		h.redial(conn)
	}

	for {
		env, err := conn.Read(h.ctx)
		if err != nil {
			return err
		}
		h.dispatch(env)
	}
}

func (h *Handle) dispatch(env stream.Envelope) {
	ev, err := stream.Decode(env)
	if err != nil {
		metrics.ClientMalformedFrames.Inc()
		logging.Warn().Err(err).Str("topic", env.Topic).Msg("Dropping undecodable envelope")
		return
	}
	topic := ev.EventTopic()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	// Frames for rooms already released can still be in flight.
	if topic != stream.RoomControl && h.rooms[topic] == 0 {
		h.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case stream.Init:
		snapshot := e.Snapshot.Clone()
		h.state[topic] = snapshot
		h.mu.Unlock()
		if h.handlers.OnInit != nil {
			h.handlers.OnInit(topic, snapshot.Clone())
		}
	case stream.Update:
		merged := h.state[topic].MergeDeep(e.Partial, h.m.deep[topic])
		h.state[topic] = merged
		h.mu.Unlock()
		if h.handlers.OnUpdate != nil {
			h.handlers.OnUpdate(topic, merged.Clone(), e.Partial)
		}
	case stream.Alert:
		h.mu.Unlock()
		if h.handlers.OnAlert != nil {
			h.handlers.OnAlert(topic, e.Data)
		}
	case stream.Error:
		h.mu.Unlock()
		if h.handlers.OnError != nil {
			h.handlers.OnError(topic, e.Data)
		}
	default:
		h.mu.Unlock()
	}
}

func (h *Handle) detach(conn Conn, cause error) {
	if conn != nil {
		_ = conn.Close()
	}

	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	if h.skipBackoff {
		cause = nil
	}
	h.mu.Unlock()

	if cause != nil {
		logging.Warn().Err(cause).Str("transport", h.m.transport.Name()).Msg("Stream disconnected")
	}
	h.setStatus(StatusDisconnected, cause, true)
}

// waitRetry blocks for the next backoff delay. It returns false when the
// handle was torn down while waiting.
func (h *Handle) waitRetry() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	if h.skipBackoff {
		h.skipBackoff = false
		h.mu.Unlock()
		return true
	}
	delay := h.backoff.Next()
	attempt := h.backoff.Attempt()
	wake := make(chan struct{})
	h.timer = h.m.clock.AfterFunc(delay, func() { close(wake) })
	h.mu.Unlock()

	logging.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("Stream reconnect scheduled")

	select {
	case <-wake:
	case <-h.ctx.Done():
		return false
	}

	h.mu.Lock()
	h.timer = nil
	h.mu.Unlock()
	return h.ctx.Err() == nil
}

// setStatus records a transition and notifies OnStatus. It returns false
// once the handle is closed. setErr controls whether err replaces the
// error slot.
func (h *Handle) setStatus(s Status, err error, setErr bool) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.status = s
	if setErr {
		h.err = err
	}
	h.mu.Unlock()
	h.notifyStatus(s, err)
	return true
}

func (h *Handle) notifyStatus(s Status, err error) {
	if h.handlers.OnStatus == nil || h.isClosed() {
		return
	}
	h.handlers.OnStatus(s, err)
}

func equalRooms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
