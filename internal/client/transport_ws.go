// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// WebSocketTransport is the primary duplex transport.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
}

// NewWebSocketTransport builds a transport for cfg.BaseURL.
func NewWebSocketTransport(cfg config.ClientConfig) (*WebSocketTransport, error) {
	u, err := endpoint(cfg.BaseURL, WebSocketPath, "ws")
	if err != nil {
		return nil, err
	}
	return &WebSocketTransport{
		url: u.String(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout(cfg),
		},
		header: authHeader(cfg),
	}, nil
}

func (t *WebSocketTransport) Name() string { return config.TransportWebSocket }

func (t *WebSocketTransport) Duplex() bool { return true }

// Dial completes the websocket handshake. rooms are ignored; the manager
// subscribes once the connection is up.
func (t *WebSocketTransport) Dial(ctx context.Context, _ []string) (Conn, error) {
	ws, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	c := &wsConn{ws: ws}
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteWait))
	})
	return c, nil
}

type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) Read(ctx context.Context) (stream.Envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return stream.Envelope{}, err
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return stream.Envelope{}, err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(wsPongWait))

		var probe controlMessage
		if json.Unmarshal(data, &probe) == nil && probe.Type == "pong" {
			continue
		}
		env, err := stream.ParseEnvelope(data)
		if err != nil {
			metrics.ClientMalformedFrames.Inc()
			logging.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed websocket frame")
			continue
		}
		return env, nil
	}
}

func (c *wsConn) Subscribe(rooms []string) error {
	return c.write(controlMessage{Type: "subscribe", Rooms: rooms})
}

func (c *wsConn) Unsubscribe(rooms []string) error {
	return c.write(controlMessage{Type: "unsubscribe", Rooms: rooms})
}

func (c *wsConn) write(msg controlMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

func handshakeTimeout(cfg config.ClientConfig) time.Duration {
	if cfg.HandshakeTimeout > 0 {
		return cfg.HandshakeTimeout
	}
	return 5 * time.Second
}

// authHeader attaches the bearer token only when credentials are enabled.
func authHeader(cfg config.ClientConfig) http.Header {
	h := http.Header{}
	if cfg.IncludeCredentials && cfg.Token != "" {
		h.Set("Authorization", "Bearer "+cfg.Token)
	}
	return h
}
