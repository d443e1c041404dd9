// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package sse serves the fallback stream: a unidirectional server-push
// channel framed as text/event-stream. The session's rooms are fixed at
// connect time from the rooms query parameter (or the configured default
// entitlement); there is no join or leave afterwards.
package sse

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/stream"
	"github.com/tomtom215/pulseboard/internal/websocket"
)

const defaultKeepalive = 15 * time.Second

// Handler serves GET requests as fallback stream sessions.
type Handler struct {
	router       *websocket.Router
	defaultRooms []string
	keepalive    time.Duration
	sendBuffer   int
}

// NewHandler creates a fallback stream handler.
func NewHandler(router *websocket.Router, cfg config.StreamConfig) *Handler {
	keepalive := cfg.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return &Handler{
		router:       router,
		defaultRooms: cfg.DefaultRooms,
		keepalive:    keepalive,
		sendBuffer:   cfg.SendBuffer,
	}
}

// ServeHTTP registers a fallback session, joins its rooms and streams
// envelopes as "data: <json>" frames until the client goes away or the
// router closes the session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rooms, err := stream.ParseRoomList(r.URL.Query().Get("rooms"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(rooms) == 0 {
		rooms, err = stream.NormalizeRooms(h.defaultRooms)
		if err != nil || len(rooms) == 0 {
			http.Error(w, "no rooms requested", http.StatusBadRequest)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	s := websocket.NewSession(websocket.TransportFallback, r.RemoteAddr, h.sendBuffer)
	if err := h.router.Register(s); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.router.Close(s.ID(), websocket.ReasonClientClosed)
	log := logging.Ctx(logging.ContextWithSessionID(r.Context(), s.ID()))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, ": session %s\n\n", s.ID()); err != nil {
		return
	}
	flusher.Flush()

	for _, room := range rooms {
		if err := h.router.Join(s.ID(), room); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("Fallback session failed to join room")
		}
	}
	log.Debug().Strs("rooms", rooms).Msg("Fallback stream opened")

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-s.Done():
			log.Debug().Str("reason", s.CloseReason()).Msg("Fallback stream closed by server")
			return

		case frame := <-s.Outbound():
			if err := WriteFrame(w, frame); err != nil {
				h.router.Close(s.ID(), websocket.ReasonWriteError)
				return
			}
			flusher.Flush()
			s.Touch()

		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				h.router.Close(s.ID(), websocket.ReasonWriteError)
				return
			}
			flusher.Flush()
			s.Touch()
		}
	}
}

// WriteFrame writes one encoded envelope as an event-stream data frame.
// Encoded envelopes never contain newlines, so a single data line suffices.
func WriteFrame(w io.Writer, frame []byte) error {
	if _, err := io.WriteString(w, "data: "); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n\n")
	return err
}
