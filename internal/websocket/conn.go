// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulseboard/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultMaxMessageSize = 64 * 1024
)

// Options tunes duplex sessions.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
}

// NewUpgrader returns a websocket upgrader accepting the given origins.
// "*" accepts any origin. Requests without an Origin header are non-browser
// clients and are accepted.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
			return false
		},
	}
}

// ServeWS upgrades the request, registers a duplex session and starts its
// pumps. Rooms listed in the "rooms" query parameter are joined immediately.
func ServeWS(router *Router, upgrader *websocket.Upgrader, opts Options, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s := NewSession(TransportDuplex, r.RemoteAddr, opts.SendBuffer)
	if err := router.Register(s); err != nil {
		logging.Warn().Err(err).Msg("Rejecting websocket session")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	log := logging.Ctx(logging.ContextWithSessionID(r.Context(), s.ID()))
	log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Duplex stream opened")

	if rooms := r.URL.Query().Get("rooms"); rooms != "" {
		if err := router.HandleControl(s.ID(), ControlMessage{Type: MsgSubscribe, Rooms: strings.Split(rooms, ",")}); err != nil {
			router.RejectControl(s.ID(), MsgSubscribe, err)
		}
	}

	maxSize := opts.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	c := &duplexConn{router: router, session: s, conn: conn, maxMessageSize: maxSize, log: log}
	go c.writePump()
	go c.readPump()
}

// duplexConn pumps frames between one websocket and its session.
type duplexConn struct {
	router         *Router
	session        *Session
	conn           *websocket.Conn
	maxMessageSize int64
	log            *zerolog.Logger
}

// readPump applies control messages until the connection fails.
func (c *duplexConn) readPump() {
	reason := ReasonClientClosed
	defer func() {
		c.router.Close(c.session.ID(), reason)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		reason = ReasonReadError
		return
	}
	c.conn.SetPongHandler(func(string) error {
		c.session.Touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected websocket close")
				reason = ReasonReadError
			}
			return
		}
		c.session.Touch()
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.router.RejectControl(c.session.ID(), "", err)
			continue
		}
		if err := c.router.HandleControl(c.session.ID(), msg); err != nil {
			c.log.Debug().Err(err).Str("type", msg.Type).Msg("Control message rejected")
			c.router.RejectControl(c.session.ID(), msg.Type, err)
		}
	}
}

// writePump writes queued frames and keepalive pings until the session
// closes or a write fails.
func (c *duplexConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.session.Outbound():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.router.Close(c.session.ID(), ReasonWriteError)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.router.Close(c.session.ID(), ReasonWriteError)
				return
			}
			c.session.Touch()

		case <-c.session.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCode(c.session.CloseReason()), c.session.CloseReason()))
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.router.Close(c.session.ID(), ReasonWriteError)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.router.Close(c.session.ID(), ReasonWriteError)
				return
			}
		}
	}
}

func closeCode(reason string) int {
	switch reason {
	case ReasonShutdown:
		return websocket.CloseGoingAway
	case ReasonSlowConsumer:
		return websocket.CloseTryAgainLater
	case ReasonIdleTimeout:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseNormalClosure
	}
}
