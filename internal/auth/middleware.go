// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
)

// Auth modes.
const (
	ModeNone = "none"
	ModeJWT  = "jwt"
)

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

var errMissingToken = errors.New("missing token")

// Middleware enforces the configured auth mode.
type Middleware struct {
	jwt       *JWTManager
	mode      string
	adminRole string
}

// NewMiddleware returns the middleware. jwtManager may be nil in none mode.
func NewMiddleware(jwtManager *JWTManager, cfg config.SecurityConfig) *Middleware {
	role := cfg.AdminRole
	if role == "" {
		role = "admin"
	}
	mode := cfg.AuthMode
	if mode == "" {
		mode = ModeNone
	}
	return &Middleware{jwt: jwtManager, mode: mode, adminRole: role}
}

// RequireAdmin admits requests whose token carries the admin role.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractToken(r)
		if err != nil {
			metrics.RecordAuthResult("missing")
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		if m.jwt == nil {
			metrics.RecordAuthResult("invalid")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			metrics.RecordAuthResult("invalid")
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Role != m.adminRole {
			metrics.RecordAuthResult("forbidden")
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		metrics.RecordAuthResult("ok")
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}

func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errMissingToken
		}
		return strings.TrimSpace(token), nil
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", errMissingToken
}
