// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// SSETransport is the fallback transport. The room set is fixed per
// connection, so Subscribe and Unsubscribe return ErrJoinUnsupported.
type SSETransport struct {
	url    string
	client *http.Client
	header http.Header
}

// NewSSETransport builds a transport for cfg.BaseURL.
func NewSSETransport(cfg config.ClientConfig) (*SSETransport, error) {
	u, err := endpoint(cfg.BaseURL, EventsPath, "")
	if err != nil {
		return nil, err
	}
	header := authHeader(cfg)
	header.Set("Accept", "text/event-stream")
	return &SSETransport{url: u.String(), client: &http.Client{}, header: header}, nil
}

func (t *SSETransport) Name() string { return config.TransportSSE }

func (t *SSETransport) Duplex() bool { return false }

// Dial opens the event stream for rooms. An empty set lets the server pick
// its default rooms.
func (t *SSETransport) Dial(ctx context.Context, rooms []string) (Conn, error) {
	target := t.url
	if len(rooms) > 0 {
		target += "?rooms=" + strings.Join(rooms, ",")
	}
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header = t.header.Clone()

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := t.client.Do(req)
		done <- result{resp, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		cancel()
		if r := <-done; r.resp != nil {
			_ = r.resp.Body.Close()
		}
		return nil, fmt.Errorf("event stream handshake: %w", ctx.Err())
	}
	if res.err != nil {
		cancel()
		return nil, fmt.Errorf("event stream handshake: %w", res.err)
	}
	if res.resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.resp.Body, 512))
		_ = res.resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream handshake: %s: %s", res.resp.Status, strings.TrimSpace(string(body)))
	}
	return &sseConn{body: res.resp.Body, frames: NewFrameReader(res.resp.Body), cancel: cancel}, nil
}

type sseConn struct {
	body      io.ReadCloser
	frames    *FrameReader
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *sseConn) Read(ctx context.Context) (stream.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return stream.Envelope{}, err
	}
	env, err := c.frames.Next()
	if err == io.EOF {
		return stream.Envelope{}, io.ErrUnexpectedEOF
	}
	return env, err
}

func (c *sseConn) Subscribe([]string) error { return ErrJoinUnsupported }

func (c *sseConn) Unsubscribe([]string) error { return ErrJoinUnsupported }

func (c *sseConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.body.Close()
	})
	return err
}
