// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default reconnect delays.
const (
	DefaultReconnectBase    = time.Second
	DefaultReconnectCeiling = 30 * time.Second
)

// Backoff yields reconnect delays min(ceiling, base*2^attempt) with no
// jitter and no retry limit. It is not safe for concurrent use.
type Backoff struct {
	exp     *backoff.ExponentialBackOff
	attempt int
}

// NewBackoff creates a backoff. Non-positive values fall back to the defaults.
func NewBackoff(base, ceiling time.Duration) *Backoff {
	if base <= 0 {
		base = DefaultReconnectBase
	}
	if ceiling <= 0 {
		ceiling = DefaultReconnectCeiling
	}
	if ceiling < base {
		ceiling = base
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.MaxInterval = ceiling
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.Reset()
	return &Backoff{exp: exp}
}

// Next returns the delay before the next attempt and advances the attempt count.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	return b.exp.NextBackOff()
}

// Reset returns to the base delay after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
	b.exp.Reset()
}

// Attempt returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}
