// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/pulseboard/internal/stream"
)

// Server paths.
const (
	WebSocketPath = "/api/v1/ws"
	EventsPath    = "/api/v1/stream/events"
)

var (
	// ErrJoinUnsupported is returned by connections that cannot change their
	// room set in place. The manager redials with the new set.
	ErrJoinUnsupported = errors.New("transport cannot join rooms on an open connection")

	// ErrAlreadyConnected is returned by Connect while a previous handle is live.
	ErrAlreadyConnected = errors.New("stream manager already connected")

	// ErrNoTransport is returned when no transport can reach the server.
	ErrNoTransport = errors.New("no usable stream transport")
)

// Transport opens connections to the streaming server.
type Transport interface {
	// Name is the metrics label for the transport.
	Name() string
	// Duplex reports whether connections accept control messages.
	Duplex() bool
	// Dial opens a connection. Fallback transports join rooms at dial time;
	// duplex transports ignore rooms and expect Subscribe.
	Dial(ctx context.Context, rooms []string) (Conn, error)
}

// Conn is one open connection.
type Conn interface {
	// Read blocks until the next envelope arrives or the connection fails.
	Read(ctx context.Context) (stream.Envelope, error)
	Subscribe(rooms []string) error
	Unsubscribe(rooms []string) error
	Close() error
}

// controlMessage is the client half of the duplex control protocol.
type controlMessage struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms,omitempty"`
}

// endpoint resolves path against base, switching to scheme when non-empty.
func endpoint(base, path, scheme string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", base)
	}
	if scheme != "" {
		switch u.Scheme {
		case "http", "ws":
			u.Scheme = scheme
		case "https", "wss":
			u.Scheme = scheme + "s"
		default:
			return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
		}
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u, nil
}
