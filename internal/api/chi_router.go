// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/pulseboard/internal/auth"
	"github.com/tomtom215/pulseboard/internal/middleware"
)

// Router builds the HTTP route tree.
type Router struct {
	handler *Handler
	auth    *auth.Middleware
	mw      *ChiMiddleware
}

// NewRouter returns a Router. authMw gates /api/v1.
func NewRouter(handler *Handler, authMw *auth.Middleware, mwCfg *ChiMiddlewareConfig) *Router {
	return &Router{handler: handler, auth: authMw, mw: NewChiMiddleware(mwCfg)}
}

// Setup returns the configured chi router.
func (router *Router) Setup() chi.Router {
	r := chi.NewRouter()
	h := router.handler

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	r.Route("/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.auth.RequireAdmin)

		r.Group(func(r chi.Router) {
			r.Use(router.mw.RateLimitCustom(RateLimitStream))
			r.Get("/ws", h.WebSocket)
			r.Get("/stream/events", h.Events)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.mw.RateLimit())
			r.Post("/stream/publish", h.Publish)
			r.Get("/stream/stats", h.Stats)
			r.Get("/snapshots/{kind}", h.Snapshot)
		})
	})

	return r
}
