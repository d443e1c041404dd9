// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Stream   StreamConfig   `koanf:"stream"`
	Producer ProducerConfig `koanf:"producer"`
	Database DatabaseConfig `koanf:"database"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Security SecurityConfig `koanf:"security"`
	Client   ClientConfig   `koanf:"client"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StreamConfig configures the room router and its sessions.
type StreamConfig struct {
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ReapInterval      time.Duration `koanf:"reap_interval"`
	SendBuffer        int           `koanf:"send_buffer"`
	KeepaliveInterval time.Duration `koanf:"keepalive_interval"`
	MaxMessageSize    int64         `koanf:"max_message_size"`
	DefaultRooms      []string      `koanf:"default_rooms"`
}

// ProducerConfig configures snapshot production and the emit ticker.
type ProducerConfig struct {
	CacheTTL          time.Duration   `koanf:"cache_ttl"`
	QueryTimeout      time.Duration   `koanf:"query_timeout"`
	KPIInterval       time.Duration   `koanf:"kpi_interval"`
	DashboardInterval time.Duration   `koanf:"dashboard_interval"`
	HealthInterval    time.Duration   `koanf:"health_interval"`
	CommunityInterval time.Duration   `koanf:"community_interval"`
	ResyncEvery       int             `koanf:"resync_every"`
	RecentLimit       int             `koanf:"recent_limit"`
	DiskPath          string          `koanf:"disk_path"`
	Breaker           BreakerConfig   `koanf:"breaker"`
	Thresholds        ThresholdConfig `koanf:"thresholds"`
	AlertSuppression  time.Duration   `koanf:"alert_suppression"`
}

// BreakerConfig mirrors gobreaker.Settings for aggregate store calls.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// ThresholdConfig holds host health thresholds in percent.
type ThresholdConfig struct {
	CPUWarning     float64 `koanf:"cpu_warning"`
	CPUCritical    float64 `koanf:"cpu_critical"`
	MemoryWarning  float64 `koanf:"memory_warning"`
	MemoryCritical float64 `koanf:"memory_critical"`
	DiskWarning    float64 `koanf:"disk_warning"`
	DiskCritical   float64 `koanf:"disk_critical"`
}

// DatabaseConfig configures the DuckDB aggregate source.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
	SeedDemo  bool   `koanf:"seed_demo"`
}

// Ingest backends.
const (
	IngestBackendMemory = "memory"
	IngestBackendNATS   = "nats"
)

// IngestConfig configures the push-update bus.
type IngestConfig struct {
	Backend           string        `koanf:"backend"`
	Topic             string        `koanf:"topic"`
	NATSURL           string        `koanf:"nats_url"`
	EmbeddedServer    bool          `koanf:"embedded_server"`
	StoreDir          string        `koanf:"store_dir"`
	QueueGroup        string        `koanf:"queue_group"`
	CommunityThrottle time.Duration `koanf:"community_throttle"`
}

// SecurityConfig configures authentication and HTTP protection.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	AdminRole         string        `koanf:"admin_role"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Client transports.
const (
	TransportAuto      = "auto"
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

// ClientConfig configures the stream client used by pulsewatch.
type ClientConfig struct {
	BaseURL            string        `koanf:"base_url"`
	IncludeCredentials bool          `koanf:"include_credentials"`
	Token              string        `koanf:"token"`
	Transport          string        `koanf:"transport"`
	ReconnectBase      time.Duration `koanf:"reconnect_base"`
	ReconnectCeiling   time.Duration `koanf:"reconnect_ceiling"`
	HandshakeTimeout   time.Duration `koanf:"handshake_timeout"`
	Rooms              []string      `koanf:"rooms"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
