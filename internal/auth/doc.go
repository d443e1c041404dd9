// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package auth gates the admin stream endpoints.

Two modes are supported, selected by AUTH_MODE:

  - none: every request passes; intended for local development.
  - jwt: requests carry an HS256 bearer token whose role claim must equal
    the configured admin role.

Tokens are read from the Authorization header, the "token" cookie, or the
access_token query parameter. Browsers cannot set headers on websocket or
EventSource requests, so the query parameter is the usual path for the
stream endpoints.

Usage:

	mgr, err := auth.NewJWTManager(&cfg.Security, time.Hour)
	mw := auth.NewMiddleware(mgr, cfg.Security)
	r.With(mw.RequireAdmin).Get("/api/v1/ws", wsHandler)

Issuing tokens is out of scope for the server; GenerateToken exists for
tests and the pulsewatch token helper.
*/
package auth
