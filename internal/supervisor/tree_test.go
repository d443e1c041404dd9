// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package supervisor

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/pulseboard/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type mockService struct {
	name    string
	started atomic.Int32
	stopped atomic.Int32
	fails   atomic.Int32
}

func (m *mockService) Serve(ctx context.Context) error {
	n := m.started.Add(1)
	defer m.stopped.Add(1)
	if n <= m.fails.Load() {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTreeDefaults(t *testing.T) {
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
	}

	tree, _ = NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{FailureBackoff: time.Second})
	if tree.config.FailureBackoff != time.Second || tree.config.FailureThreshold != 5 {
		t.Errorf("config = %+v", tree.config)
	}
}

func TestSupervisorTreeRunsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	ticker := &mockService{name: "snapshot-ticker"}
	router := &mockService{name: "room-router"}
	forwarder := &mockService{name: "ingest-forwarder"}
	forwarder.fails.Store(1)
	httpSvc := &mockService{name: "http-server"}

	tree.AddDataService(ticker)
	tree.AddMessagingService(router)
	tree.AddMessagingService(forwarder)
	tree.AddAPIService(httpSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	eventually(t, "all services started", func() bool {
		return ticker.started.Load() >= 1 && router.started.Load() >= 1 && httpSvc.started.Load() >= 1
	})
	eventually(t, "forwarder restart", func() bool { return forwarder.started.Load() >= 2 })

	if got := router.started.Load(); got != 1 {
		t.Errorf("router started %d times, want 1; a sibling failure must not restart it", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, svc := range []*mockService{ticker, router, forwarder, httpSvc} {
		if svc.started.Load() != svc.stopped.Load() {
			t.Errorf("%s started %d stopped %d", svc.name, svc.started.Load(), svc.stopped.Load())
		}
	}
}

func TestWaitReturnsAfterCancel(t *testing.T) {
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	ticker := &mockService{name: "snapshot-ticker"}
	tree.AddDataService(ticker)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	eventually(t, "ticker start", func() bool { return ticker.started.Load() == 1 })

	done := make(chan error, 1)
	go func() { done <- Wait(ctx, errCh) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() after cancel = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Wait() still blocked after the tree was cancelled")
	}
}

func TestWaitResultBeforeCancel(t *testing.T) {
	tests := []struct {
		name    string
		result  error
		wantErr bool
	}{
		{"clean stop", nil, false},
		{"canceled", context.Canceled, false},
		{"failure", errors.New("tree terminated"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errCh := make(chan error, 1)
			errCh <- tt.result

			done := make(chan error, 1)
			go func() { done <- Wait(context.Background(), errCh) }()

			select {
			case err := <-done:
				if (err != nil) != tt.wantErr {
					t.Errorf("Wait() = %v, wantErr %v", err, tt.wantErr)
				}
			case <-time.After(time.Second):
				t.Fatal("Wait() blocked after the only result was delivered")
			}
		})
	}
}
