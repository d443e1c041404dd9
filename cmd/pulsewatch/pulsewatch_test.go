// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pulseboard/internal/api"
	"github.com/tomtom215/pulseboard/internal/auth"
	"github.com/tomtom215/pulseboard/internal/client"
	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/sse"
	"github.com/tomtom215/pulseboard/internal/stream"
	"github.com/tomtom215/pulseboard/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := &syncBuffer{}
	app.Writer = out
	app.ErrWriter = io.Discard
	err := app.Run(t.Context(), append([]string{"pulsewatch", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := runApp(t, "token", "--secret", testSecret, "--user", "ops", "--role", "admin")
	if err != nil {
		t.Fatalf("token command error = %v", err)
	}
	m, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "ops" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseDeep(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    int
		wantErr bool
	}{
		{"none", nil, 0, false},
		{"one topic two fields", []string{"system-metrics=cpu", "system-metrics=memory"}, 1, false},
		{"two topics", []string{"system-metrics=cpu", "community:stream=recent"}, 2, false},
		{"missing field", []string{"system-metrics="}, 0, true},
		{"missing separator", []string{"system-metrics"}, 0, true},
		{"bad room", []string{"Bad Room=cpu"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseDeep(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDeep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(opts) != tt.want {
				t.Errorf("len(opts) = %d, want %d", len(opts), tt.want)
			}
		})
	}
}

func TestHTTPURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:3857", "http://localhost:3857/api/v1/stream/publish", false},
		{"https://dash.example.com/", "https://dash.example.com/api/v1/stream/publish", false},
		{"ws://localhost:3857", "http://localhost:3857/api/v1/stream/publish", false},
		{"wss://dash.example.com/base", "https://dash.example.com/base/api/v1/stream/publish", false},
		{"ftp://localhost", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := httpURL(tt.base, publishPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("httpURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("httpURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderStateSortsKeys(t *testing.T) {
	out := renderState(stream.KindUpdate, stream.RoomKPIs, stream.State{"zeta": json.RawMessage(`1`), "alpha": json.RawMessage(`{"x":2}`)})
	if !strings.Contains(out, stream.RoomKPIs) {
		t.Errorf("missing topic in %q", out)
	}
	a, z := strings.Index(out, "alpha:"), strings.Index(out, "zeta:")
	if a < 0 || z < 0 || a > z {
		t.Errorf("keys not sorted in %q", out)
	}
	if !strings.Contains(out, `{"x":2}`) {
		t.Errorf("nested value not compacted in %q", out)
	}
}

func TestRenderStatus(t *testing.T) {
	out := renderStatus(client.StatusDisconnected, errors.New("connection refused"))
	if !strings.Contains(out, "disconnected") || !strings.Contains(out, "connection refused") {
		t.Errorf("renderStatus() = %q", out)
	}
	if out := renderStatus(client.StatusConnected, nil); !strings.Contains(out, "connected") {
		t.Errorf("renderStatus() = %q", out)
	}
}

func TestPublishCommand(t *testing.T) {
	var gotAuth string
	var gotReq api.PublishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := api.NewResponseWriter(w, r)
		if r.URL.Path != publishPath || r.Method != http.MethodPost {
			rw.NotFound("no route")
			return
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			rw.BadRequest("bad json")
			return
		}
		if gotReq.Topic == "bi-executions" {
			rw.ErrorWithDetails(http.StatusBadRequest, api.ErrCodeValidationFailed, "Invalid envelope", nil)
			return
		}
		rw.Accepted(api.PublishResponse{MessageID: "m-1", Topic: gotReq.Topic, Kind: gotReq.Kind})
	}))
	t.Cleanup(srv.Close)

	out, err := runApp(t, "--url", srv.URL, "--token", "tok", "publish",
		"--topic", stream.RoomSystemAlerts, "--kind", "alert", "--payload", `{"msg":"disk"}`)
	if err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if strings.TrimSpace(out) != "m-1 system-alerts/alert" {
		t.Errorf("output = %q", out)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if string(gotReq.Payload) != `{"msg":"disk"}` {
		t.Errorf("payload = %s", gotReq.Payload)
	}

	_, err = runApp(t, "--url", srv.URL, "publish", "--topic", "bi-executions", "--payload", `{}`)
	if err == nil || !strings.Contains(err.Error(), api.ErrCodeValidationFailed) {
		t.Errorf("rejected publish error = %v", err)
	}

	_, err = runApp(t, "--url", srv.URL, "publish", "--topic", stream.RoomKPIs, "--payload", `{not json`)
	if err == nil {
		t.Error("invalid payload accepted")
	}
}

func TestRunWatchPrintsEvents(t *testing.T) {
	streamCfg := config.StreamConfig{SendBuffer: 32, KeepaliveInterval: time.Second}
	router := websocket.NewRouter(streamCfg)
	upgrader := websocket.NewUpgrader([]string{"*"})
	mux := http.NewServeMux()
	mux.HandleFunc(client.WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(router, &upgrader, websocket.Options{SendBuffer: 32}, w, r)
	})
	mux.Handle(client.EventsPath, sse.NewHandler(router, streamCfg))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, transport := range []string{config.TransportWebSocket, config.TransportSSE} {
		t.Run(transport, func(t *testing.T) {
			cfg := config.Default().Client
			cfg.BaseURL = srv.URL
			cfg.Transport = transport
			cfg.Rooms = []string{stream.RoomKPIs}

			out := &syncBuffer{}
			done := make(chan error, 1)
			go func() { done <- runWatch(t.Context(), cfg, nil, out, 1) }()

			deadline := time.Now().Add(3 * time.Second)
			for len(router.Members(stream.RoomKPIs)) == 0 {
				if time.Now().After(deadline) {
					t.Fatal("watch never joined bi-kpis")
				}
				time.Sleep(10 * time.Millisecond)
			}
			env, err := stream.NewEnvelope(stream.RoomKPIs, stream.KindInit, map[string]int{"active_users": 3})
			if err != nil {
				t.Fatal(err)
			}
			router.Emit(stream.RoomKPIs, env)

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("runWatch() error = %v", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("runWatch did not stop after one event")
			}
			if got := out.String(); !strings.Contains(got, "active_users:") || !strings.Contains(got, stream.RoomKPIs) {
				t.Errorf("output = %q", got)
			}
			deadline = time.Now().Add(3 * time.Second)
			for router.SessionCount() != 0 {
				if time.Now().After(deadline) {
					t.Fatal("session not released after watch returned")
				}
				time.Sleep(10 * time.Millisecond)
			}
		})
	}
}
