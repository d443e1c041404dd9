// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"testing"
	"time"
)

func TestBackoffDelays(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.Attempt() != len(want) {
		t.Errorf("Attempt() = %d, want %d", b.Attempt(), len(want))
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Errorf("Attempt() after Reset = %d, want 0", b.Attempt())
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestBackoffDefaults(t *testing.T) {
	tests := []struct {
		name          string
		base, ceiling time.Duration
		first         time.Duration
	}{
		{"zero values", 0, 0, DefaultReconnectBase},
		{"ceiling below base", 5 * time.Second, time.Second, 5 * time.Second},
		{"custom base", 250 * time.Millisecond, time.Second, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(tt.base, tt.ceiling)
			if got := b.Next(); got != tt.first {
				t.Errorf("Next() = %v, want %v", got, tt.first)
			}
		})
	}
}

func TestBackoffNeverExceedsCeiling(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 3*time.Second)
	for i := 0; i < 50; i++ {
		if d := b.Next(); d > 3*time.Second {
			t.Fatalf("Next() #%d = %v exceeds ceiling", i, d)
		}
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(time.Second, func() { fired = append(fired, "stopped") })

	if !stopped.Stop() {
		t.Fatal("Stop() = false, want true")
	}
	if stopped.Stop() {
		t.Error("second Stop() = true, want false")
	}
	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", c.Pending())
	}

	c.Advance(1500 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v, want [a]", fired)
	}
	c.Advance(time.Second)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
	if !c.Now().Equal(start.Add(2500 * time.Millisecond)) {
		t.Errorf("Now() = %v", c.Now())
	}
	if got := c.Scheduled(); len(got) != 3 {
		t.Errorf("Scheduled() = %v, want 3 entries", got)
	}
}
