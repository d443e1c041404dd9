// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/producer"
	"github.com/tomtom215/pulseboard/internal/sse"
	"github.com/tomtom215/pulseboard/internal/stream"
	"github.com/tomtom215/pulseboard/internal/validation"
	"github.com/tomtom215/pulseboard/internal/websocket"
)

// maxPublishBody bounds POST /stream/publish bodies.
const maxPublishBody = 1 << 20

// SnapshotSource produces snapshots on demand.
type SnapshotSource interface {
	Produce(ctx context.Context, kind string) (stream.Snapshot, error)
	Stats() producer.Stats
}

// EnvelopePublisher hands envelopes to the ingest bus.
type EnvelopePublisher interface {
	Publish(ctx context.Context, env stream.Envelope) (string, error)
}

// Pinger reports aggregate store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the streaming and snapshot endpoints.
type Handler struct {
	router    *websocket.Router
	snapshots SnapshotSource
	publisher EnvelopePublisher
	db        Pinger
	upgrader  gws.Upgrader
	wsOpts    websocket.Options
	events    http.Handler
	startTime time.Time
}

// NewHandler wires the handler. publisher and db may be nil.
func NewHandler(router *websocket.Router, snapshots SnapshotSource, publisher EnvelopePublisher, db Pinger, cfg *config.Config) *Handler {
	return &Handler{
		router:    router,
		snapshots: snapshots,
		publisher: publisher,
		db:        db,
		upgrader:  websocket.NewUpgrader(cfg.Security.CORSOrigins),
		wsOpts: websocket.Options{
			SendBuffer:     cfg.Stream.SendBuffer,
			MaxMessageSize: cfg.Stream.MaxMessageSize,
		},
		events:    sse.NewHandler(router, cfg.Stream),
		startTime: time.Now(),
	}
}

// WebSocket upgrades to a duplex session.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.router, &h.upgrader, h.wsOpts, w, r)
}

// Events serves the server-sent events fallback.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.events.ServeHTTP(w, r)
}

// PublishRequest is the body of POST /stream/publish.
type PublishRequest struct {
	Topic   string          `json:"topic" validate:"required,room"`
	Kind    string          `json:"kind" validate:"required,envkind"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// PublishResponse acknowledges an accepted envelope.
type PublishResponse struct {
	MessageID string `json:"message_id"`
	Topic     string `json:"topic"`
	Kind      string `json:"kind"`
}

// Publish validates an envelope and puts it on the ingest bus.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.publisher == nil {
		rw.ServiceUnavailable("Ingest bus is not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPublishBody))
	if err != nil {
		rw.BadRequest("Request body too large or unreadable")
		return
	}
	var req PublishRequest
	if err := json.Unmarshal(body, &req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		var ve *validation.RequestValidationError
		if errors.As(err, &ve) {
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "Validation failed", ve.Details())
			return
		}
		rw.BadRequest(err.Error())
		return
	}

	env := stream.Envelope{Topic: req.Topic, Kind: stream.Kind(req.Kind), Payload: req.Payload}
	if err := env.Validate(); err != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "Invalid envelope", map[string]string{"envelope": err.Error()})
		return
	}

	id, err := h.publisher.Publish(r.Context(), env)
	if err != nil {
		rw.InternalError("Failed to publish envelope", err)
		return
	}
	rw.Accepted(PublishResponse{MessageID: id, Topic: env.Topic, Kind: string(env.Kind)})
}

// StatsResponse is the body of GET /stream/stats.
type StatsResponse struct {
	Router   websocket.Stats `json:"router"`
	Producer producer.Stats  `json:"producer"`
}

// Stats reports router and producer state.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(StatsResponse{
		Router:   h.router.Stats(),
		Producer: h.snapshots.Stats(),
	})
}

// Snapshot produces the snapshot for the {kind} path parameter.
// Degraded snapshots are returned with 200; the body says so.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	kind := chi.URLParam(r, "kind")
	snap, err := h.snapshots.Produce(r.Context(), kind)
	if errors.Is(err, producer.ErrUnknownKind) {
		rw.NotFound("Unknown snapshot kind: " + kind)
		return
	}
	if err != nil {
		rw.InternalError("Failed to produce snapshot", err)
		return
	}
	rw.Success(snap)
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports readiness. The aggregate store must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Aggregate store unavailable", map[string]string{"database": err.Error()})
			return
		}
	}
	rw.Success(map[string]interface{}{
		"status":   "ready",
		"sessions": h.router.SessionCount(),
	})
}
