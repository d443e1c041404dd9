// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockHTTPServer struct {
	listenAndServeErr   error
	listenAndServeBlock bool
	shutdownErr         error
	listenAndServeCount atomic.Int32
	shutdownCount       atomic.Int32
	started             chan struct{}
	stopCh              chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.listenAndServeCount.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenAndServeErr != nil {
		return m.listenAndServeErr
	}
	if m.listenAndServeBlock {
		<-m.stopCh
		return http.ErrServerClosed
	}
	return nil
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func waitStarted(t *testing.T, m *mockHTTPServer) {
	t.Helper()
	select {
	case <-m.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestNewHTTPServerServiceDefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(newMockHTTPServer(), timeout)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("NewHTTPServerService(%v) timeout = %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Run("shuts down on cancel after OnShutdown", func(t *testing.T) {
		server := newMockHTTPServer()
		server.listenAndServeBlock = true
		svc := NewHTTPServerService(server, time.Second)

		var hookShutdowns atomic.Int32
		hookShutdowns.Store(-1)
		svc.OnShutdown(func() { hookShutdowns.Store(server.shutdownCount.Load()) })

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		waitStarted(t, server)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if got := server.shutdownCount.Load(); got != 1 {
			t.Errorf("Shutdown calls = %d, want 1", got)
		}
		if got := hookShutdowns.Load(); got != 0 {
			t.Errorf("OnShutdown ran after %d Shutdown calls, want 0", got)
		}
	})

	t.Run("startup failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		server := newMockHTTPServer()
		server.listenAndServeErr = bindErr

		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("Serve() = %v, want %v", err, bindErr)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		server := newMockHTTPServer()
		server.listenAndServeBlock = true
		server.shutdownErr = shutdownErr
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		waitStarted(t, server)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, shutdownErr) {
				t.Errorf("Serve() = %v, want %v", err, shutdownErr)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
	})
}

type countingRunner struct {
	runs atomic.Int32
	fail atomic.Int32
}

func (r *countingRunner) RunWithContext(ctx context.Context) error {
	n := r.runs.Add(1)
	if n <= r.fail.Load() {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerServiceRestartsUnderSupervisor(t *testing.T) {
	runner := &countingRunner{}
	runner.fail.Store(2)
	svc := NewRunnerService("ingest-forwarder", runner)
	if svc.String() != "ingest-forwarder" {
		t.Errorf("String() = %q", svc.String())
	}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 5,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runner.runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if got := runner.runs.Load(); got < 3 {
		t.Errorf("runs = %d, want at least 3 (two failures then a healthy run)", got)
	}
}
