// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/pulseboard/internal/stream"
)

// minJWTSecretLength is the minimum HS256 secret length accepted in jwt mode.
const minJWTSecretLength = 32

// Validate checks that configuration values are present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStream,
		c.validateProducer,
		c.validateDatabase,
		c.validateIngest,
		c.validateSecurity,
		c.validateClient,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStream() error {
	s := c.Stream
	if s.IdleTimeout <= 0 {
		return fmt.Errorf("STREAM_IDLE_TIMEOUT must be positive")
	}
	if s.ReapInterval <= 0 || s.ReapInterval > s.IdleTimeout {
		return fmt.Errorf("STREAM_REAP_INTERVAL must be positive and no larger than STREAM_IDLE_TIMEOUT (%v)", s.IdleTimeout)
	}
	if s.SendBuffer < 1 || s.SendBuffer > 65536 {
		return fmt.Errorf("STREAM_SEND_BUFFER must be between 1 and 65536, got %d", s.SendBuffer)
	}
	if s.KeepaliveInterval <= 0 || s.KeepaliveInterval >= s.IdleTimeout {
		return fmt.Errorf("STREAM_KEEPALIVE_INTERVAL must be positive and shorter than STREAM_IDLE_TIMEOUT")
	}
	if s.MaxMessageSize < 512 {
		return fmt.Errorf("STREAM_MAX_MESSAGE_SIZE must be at least 512 bytes")
	}
	for _, room := range s.DefaultRooms {
		if err := stream.ValidateRoom(room); err != nil {
			return fmt.Errorf("STREAM_DEFAULT_ROOMS: %w", err)
		}
	}
	return nil
}

func (c *Config) validateProducer() error {
	p := c.Producer
	intervals := map[string]time.Duration{
		"PRODUCER_KPI_INTERVAL":       p.KPIInterval,
		"PRODUCER_DASHBOARD_INTERVAL": p.DashboardInterval,
		"PRODUCER_HEALTH_INTERVAL":    p.HealthInterval,
		"PRODUCER_COMMUNITY_INTERVAL": p.CommunityInterval,
		"PRODUCER_QUERY_TIMEOUT":      p.QueryTimeout,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if p.CacheTTL < 0 {
		return fmt.Errorf("PRODUCER_CACHE_TTL must not be negative")
	}
	if p.ResyncEvery < 1 {
		return fmt.Errorf("PRODUCER_RESYNC_EVERY must be at least 1")
	}
	if p.RecentLimit < 1 || p.RecentLimit > 500 {
		return fmt.Errorf("PRODUCER_RECENT_LIMIT must be between 1 and 500")
	}
	if p.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if p.Breaker.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	if p.AlertSuppression < 0 {
		return fmt.Errorf("ALERT_SUPPRESSION must not be negative")
	}
	return p.Thresholds.validate()
}

func (t ThresholdConfig) validate() error {
	pairs := []struct {
		name              string
		warning, critical float64
	}{
		{"CPU", t.CPUWarning, t.CPUCritical},
		{"MEMORY", t.MemoryWarning, t.MemoryCritical},
		{"DISK", t.DiskWarning, t.DiskCritical},
	}
	for _, p := range pairs {
		if p.warning <= 0 || p.critical > 100 || p.warning >= p.critical {
			return fmt.Errorf("ALERT_%s_WARNING (%.1f) must be above 0 and below ALERT_%s_CRITICAL (%.1f), which may not exceed 100",
				p.name, p.warning, p.name, p.critical)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required (use :memory: for an in-process database)")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateIngest() error {
	switch c.Ingest.Backend {
	case IngestBackendMemory:
	case IngestBackendNATS:
		u, err := url.Parse(c.Ingest.NATSURL)
		if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") || u.Host == "" {
			return fmt.Errorf("NATS_URL must be a nats:// or tls:// URL, got %q", c.Ingest.NATSURL)
		}
		if c.Ingest.EmbeddedServer && c.Ingest.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
	default:
		return fmt.Errorf("INGEST_BACKEND must be %q or %q, got %q", IngestBackendMemory, IngestBackendNATS, c.Ingest.Backend)
	}
	if strings.TrimSpace(c.Ingest.Topic) == "" {
		return fmt.Errorf("INGEST_TOPIC is required")
	}
	if c.Ingest.CommunityThrottle < 0 {
		return fmt.Errorf("COMMUNITY_THROTTLE must not be negative")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
		if c.Security.AdminRole == "" {
			return fmt.Errorf("ADMIN_ROLE is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be none or jwt, got %q", c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.Server.Environment == "production" {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * when ENVIRONMENT=production")
			}
		}
	}
	return nil
}

// ValidateClient checks only the client section; pulsewatch calls it directly.
func (c *Config) ValidateClient() error {
	return c.validateClient()
}

func (c *Config) validateClient() error {
	cl := c.Client
	u, err := url.Parse(cl.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("STREAM_BASE_URL must be an absolute URL, got %q", cl.BaseURL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("STREAM_BASE_URL scheme must be http, https, ws or wss, got %q", u.Scheme)
	}
	switch cl.Transport {
	case TransportAuto, TransportWebSocket, TransportSSE:
	default:
		return fmt.Errorf("STREAM_TRANSPORT must be auto, websocket or sse, got %q", cl.Transport)
	}
	if cl.ReconnectBase <= 0 {
		return fmt.Errorf("RECONNECT_BASE must be positive")
	}
	if cl.ReconnectCeiling < cl.ReconnectBase {
		return fmt.Errorf("RECONNECT_CEILING (%v) must not be below RECONNECT_BASE (%v)", cl.ReconnectCeiling, cl.ReconnectBase)
	}
	if cl.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive")
	}
	for _, room := range cl.Rooms {
		if err := stream.ValidateRoom(room); err != nil {
			return fmt.Errorf("STREAM_ROOMS: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
