// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/pulseboard/internal/logging"
)

// autoTransport tries the primary transport first and the fallback second.
// The first transport that connects is kept for the life of the manager.
type autoTransport struct {
	primary  Transport
	fallback Transport

	mu       sync.Mutex
	resolved Transport
}

func newAutoTransport(primary, fallback Transport) *autoTransport {
	return &autoTransport{primary: primary, fallback: fallback}
}

func (t *autoTransport) current() Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved
}

func (t *autoTransport) Name() string {
	if r := t.current(); r != nil {
		return r.Name()
	}
	return "auto"
}

func (t *autoTransport) Duplex() bool {
	if r := t.current(); r != nil {
		return r.Duplex()
	}
	return t.primary.Duplex()
}

func (t *autoTransport) Dial(ctx context.Context, rooms []string) (Conn, error) {
	if r := t.current(); r != nil {
		return r.Dial(ctx, rooms)
	}

	conn, primaryErr := t.primary.Dial(ctx, rooms)
	if primaryErr == nil {
		t.resolve(t.primary)
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}
	conn, fallbackErr := t.fallback.Dial(ctx, rooms)
	if fallbackErr != nil {
		return nil, errors.Join(ErrNoTransport, primaryErr, fallbackErr)
	}
	logging.Warn().Err(primaryErr).
		Str("transport", t.fallback.Name()).
		Msg("Primary stream transport unavailable, using fallback")
	t.resolve(t.fallback)
	return conn, nil
}

func (t *autoTransport) resolve(tr Transport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved == nil {
		t.resolved = tr
		logging.Info().Str("transport", tr.Name()).Msg("Stream transport selected")
	}
}
