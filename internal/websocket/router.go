// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

var (
	// ErrSessionNotFound is returned for ids that are not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRouterClosed is returned by Register after shutdown.
	ErrRouterClosed = errors.New("router is shut down")

	// ErrDuplicateSession is returned when an id is registered twice.
	ErrDuplicateSession = errors.New("session already registered")
)

// ShutdownReason identifies why the router stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// InitProvider supplies the current full snapshot of a room for sessions
// that join it. It must not block.
type InitProvider interface {
	InitFor(room string) (stream.Envelope, bool)
}

// RoomStats counts traffic for one room while it has members.
type RoomStats struct {
	Members   int    `json:"members"`
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Errors    uint64 `json:"errors"`
}

// Stats is a point-in-time view of the router.
type Stats struct {
	Sessions    int                  `json:"sessions"`
	ByTransport map[Transport]int    `json:"by_transport"`
	Rooms       map[string]RoomStats `json:"rooms"`
}

type room struct {
	members map[string]*Session
	stats   RoomStats
}

// Router is the room registry. It owns the session table and the
// room -> members table and fans envelopes out to members. All membership
// changes and emits are serialized by one mutex, which gives per-room FIFO
// delivery and lets Join queue the init snapshot before any later emit.
type Router struct {
	mu       sync.Mutex
	sessions map[string]*Session
	rooms    map[string]*room
	closed   bool

	init         InitProvider
	idleTimeout  time.Duration
	reapInterval time.Duration
	log          zerolog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithInitProvider sets the source of init envelopes delivered on join.
func WithInitProvider(p InitProvider) RouterOption {
	return func(r *Router) { r.init = p }
}

// NewRouter creates a router from the stream configuration.
func NewRouter(cfg config.StreamConfig, opts ...RouterOption) *Router {
	r := &Router{
		sessions:     make(map[string]*Session),
		rooms:        make(map[string]*room),
		idleTimeout:  cfg.IdleTimeout,
		reapInterval: cfg.ReapInterval,
		log:          logging.WithComponent("stream-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetInitProvider replaces the init provider. Used when the producer is
// built after the router.
func (r *Router) SetInitProvider(p InitProvider) {
	r.mu.Lock()
	r.init = p
	r.mu.Unlock()
}

// Register adds a session to the router.
func (r *Router) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRouterClosed
	}
	if _, exists := r.sessions[s.id]; exists {
		return ErrDuplicateSession
	}
	r.sessions[s.id] = s
	metrics.RecordSessionOpened(string(s.transport))
	r.log.Debug().Str("session_id", s.id).Str("transport", string(s.transport)).
		Int("total_sessions", len(r.sessions)).Msg("Stream session registered")
	return nil
}

// Session returns a registered session.
func (r *Router) Session(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Join adds the session to room and queues the room's current init
// envelope for it. Joining a room twice is a no-op.
func (r *Router) Join(id, roomName string) error {
	if err := validateJoinable(roomName); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !s.addRoom(roomName) {
		return nil
	}
	rm, ok := r.rooms[roomName]
	if !ok {
		rm = &room{members: make(map[string]*Session)}
		r.rooms[roomName] = rm
		metrics.StreamRoomsActive.Set(float64(len(r.rooms)))
	}
	rm.members[id] = s

	if r.init == nil {
		return nil
	}
	env, ok := r.init.InitFor(roomName)
	if !ok {
		return nil
	}
	frame, err := env.Encode()
	if err != nil {
		rm.stats.Errors++
		return nil
	}
	if !s.enqueue(frame) {
		rm.stats.Dropped++
		metrics.RecordDrop(roomName, ReasonSlowConsumer)
		r.closeLocked(s, ReasonSlowConsumer)
		return nil
	}
	rm.stats.Delivered++
	return nil
}

func validateJoinable(roomName string) error {
	if err := stream.ValidateRoom(roomName); err != nil {
		return err
	}
	if roomName == stream.RoomControl {
		return fmt.Errorf("%w: %q is reserved", stream.ErrInvalidRoom, roomName)
	}
	return nil
}

// Leave removes the session from room. Leaving a room the session is not
// in is a no-op.
func (r *Router) Leave(id, roomName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.removeRoom(roomName) {
		r.removeMemberLocked(roomName, id)
	}
	return nil
}

// LeaveAll removes the session from every room and returns the rooms it left.
func (r *Router) LeaveAll(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	left := s.clearRooms()
	for _, roomName := range left {
		r.removeMemberLocked(roomName, id)
	}
	return left, nil
}

// removeMemberLocked drops id from room and forgets the room once empty.
func (r *Router) removeMemberLocked(roomName, id string) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return
	}
	delete(rm.members, id)
	if len(rm.members) == 0 {
		delete(r.rooms, roomName)
		metrics.StreamRoomsActive.Set(float64(len(r.rooms)))
	}
}

// Emit delivers env to every session joined to room and returns the number
// of sessions that received it. Delivery never blocks: a session whose
// buffer is full is closed as a slow consumer and will resynchronize from
// an init after it reconnects.
func (r *Router) Emit(roomName string, env stream.Envelope) int {
	frame, err := env.Encode()
	if err != nil {
		r.log.Warn().Err(err).Str("room", roomName).Msg("Failed to encode envelope")
		metrics.RecordDrop(roomName, "encode")
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		metrics.RecordEmit(roomName, string(env.Kind), 0)
		return 0
	}
	rm.stats.Published++

	// Sorted ids keep delivery order reproducible across sessions.
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	delivered := 0
	var slow []*Session
	for _, id := range ids {
		s := rm.members[id]
		if s.enqueue(frame) {
			delivered++
			continue
		}
		slow = append(slow, s)
	}
	rm.stats.Delivered += uint64(delivered)
	rm.stats.Dropped += uint64(len(slow))

	for _, s := range slow {
		metrics.RecordDrop(roomName, ReasonSlowConsumer)
		r.log.Warn().Str("session_id", s.id).Str("room", roomName).Msg("Closing slow stream consumer")
		r.closeLocked(s, ReasonSlowConsumer)
	}
	metrics.RecordEmit(roomName, string(env.Kind), delivered)
	return delivered
}

// Send queues env for one session only, outside any room. Used for replies
// to control messages.
func (r *Router) Send(id string, env stream.Envelope) error {
	frame, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
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

// Close terminates a session and removes it from every room. Closing an
// unknown or already closed session is a no-op.
func (r *Router) Close(id, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		r.closeLocked(s, reason)
	}
}

func (r *Router) closeLocked(s *Session, reason string) {
	if _, ok := r.sessions[s.id]; !ok {
		return
	}
	for _, roomName := range s.clearRooms() {
		r.removeMemberLocked(roomName, s.id)
	}
	delete(r.sessions, s.id)
	if s.terminate(reason) {
		metrics.RecordSessionClosed(string(s.transport), reason)
		r.log.Debug().Str("session_id", s.id).Str("reason", reason).
			Int("total_sessions", len(r.sessions)).Msg("Stream session closed")
	}
}

// Reap closes sessions idle for longer than the idle timeout as of now and
// returns how many were closed. A non-positive timeout disables reaping.
func (r *Router) Reap(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var idle []*Session
	for _, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.idleTimeout {
			idle = append(idle, s)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].id < idle[j].id })
	for _, s := range idle {
		r.closeLocked(s, ReasonIdleTimeout)
	}
	if len(idle) > 0 {
		r.log.Info().Int("reaped", len(idle)).Int("remaining", len(r.sessions)).Msg("Reaped idle stream sessions")
	}
	return len(idle)
}

// RunWithContext reaps idle sessions until ctx is canceled, then closes
// every session and refuses new registrations. Designed for suture.
func (r *Router) RunWithContext(ctx context.Context) error {
	r.mu.Lock()
	r.closed = false
	r.mu.Unlock()

	var tick <-chan time.Time
	if r.idleTimeout > 0 && r.reapInterval > 0 {
		ticker := time.NewTicker(r.reapInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.shutdown(ctx)
			return ctx.Err()
		case now := <-tick:
			r.Reap(now)
		}
	}
}

// CloseAll closes every session with reason and returns how many were
// closed. New sessions may still register afterwards.
func (r *Router) CloseAll(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeAllLocked(reason)
}

func (r *Router) closeAllLocked(reason string) int {
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	for _, s := range sessions {
		r.closeLocked(s, reason)
	}
	return len(sessions)
}

func (r *Router) shutdown(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	closed := r.closeAllLocked(ReasonShutdown)
	r.mu.Unlock()

	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	r.log.Info().
		Str("reason", string(reason)).
		Int("sessions_closed", closed).
		Msg("Stream router stopped")
}

// Rooms returns the rooms with at least one member, sorted.
func (r *Router) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Members returns the session ids joined to room, sorted.
func (r *Router) Members(roomName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomName]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SessionCount returns the number of registered sessions.
func (r *Router) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stats returns session counts and per-room traffic.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{
		Sessions:    len(r.sessions),
		ByTransport: make(map[Transport]int),
		Rooms:       make(map[string]RoomStats, len(r.rooms)),
	}
	for _, s := range r.sessions {
		st.ByTransport[s.transport]++
	}
	for name, rm := range r.rooms {
		rs := rm.stats
		rs.Members = len(rm.members)
		st.Rooms[name] = rs
	}
	return st
}
