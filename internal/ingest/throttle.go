// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCommunityThrottle is the minimum spacing of community activity
// broadcasts of one type.
const DefaultCommunityThrottle = 500 * time.Millisecond

// Throttle admits at most one event per key per interval.
type Throttle struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottle returns a throttle. A non-positive interval admits everything.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether an event for key may pass at now.
func (t *Throttle) Allow(key string, now time.Time) bool {
	if t == nil || t.interval <= 0 {
		return true
	}
	t.mu.Lock()
	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[key] = lim
	}
	t.mu.Unlock()
	return lim.AllowN(now, 1)
}

// Keys returns the number of keys seen.
func (t *Throttle) Keys() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
