// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package middleware holds HTTP middleware shared by the API router.
//
// Wrappers in this package must keep long-lived streaming responses working:
// the response writer they install forwards Flush and exposes Unwrap so
// http.ResponseController and the websocket upgrader reach the underlying
// connection.
package middleware
