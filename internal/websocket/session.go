// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package websocket

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Transport identifies how a session is attached.
type Transport string

const (
	// TransportDuplex is a persistent bidirectional websocket.
	TransportDuplex Transport = "duplex"
	// TransportFallback is a server-push event stream with fixed rooms.
	TransportFallback Transport = "fallback-poll"
)

// Close reasons recorded on sessions and in metrics.
const (
	ReasonClientClosed = "client_closed"
	ReasonIdleTimeout  = "idle_timeout"
	ReasonSlowConsumer = "slow_consumer"
	ReasonShutdown     = "shutdown"
	ReasonReadError    = "read_error"
	ReasonWriteError   = "write_error"
)

// DefaultSendBuffer is the outbound queue length when none is configured.
const DefaultSendBuffer = 256

// Session is the server-side handle of one connected client. Room
// membership is owned by the Router; the session only mirrors it.
type Session struct {
	id         string
	transport  Transport
	remoteAddr string
	createdAt  time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64

	mu          sync.Mutex
	rooms       map[string]struct{}
	closeReason string
}

// NewSession creates an unregistered session with a generated id.
func NewSession(transport Transport, remoteAddr string, buffer int) *Session {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	now := time.Now()
	s := &Session{
		id:         uuid.NewString(),
		transport:  transport,
		remoteAddr: remoteAddr,
		createdAt:  now,
		send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
		rooms:      make(map[string]struct{}),
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Transport returns how the session is attached.
func (s *Session) Transport() Transport { return s.transport }

// RemoteAddr returns the client address seen at handshake.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Touch records traffic on the session.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last recorded traffic.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Outbound is the queue of encoded frames the transport writes to the client.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Done is closed when the session terminates.
func (s *Session) Done() <-chan struct{} { return s.done }

// Closed reports whether the session has terminated.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// CloseReason returns why the session terminated, or "" while open.
func (s *Session) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// Rooms returns the joined rooms in sorted order.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (s *Session) addRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; ok {
		return false
	}
	s.rooms[room] = struct{}{}
	return true
}

func (s *Session) removeRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	return true
}

func (s *Session) clearRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	s.rooms = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// enqueue offers a frame without blocking. It reports false when the
// session is closed or its buffer is full.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// terminate marks the session closed. Only the first reason is kept.
func (s *Session) terminate(reason string) bool {
	first := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closeReason = reason
		s.mu.Unlock()
		close(s.done)
		first = true
	})
	return first
}
