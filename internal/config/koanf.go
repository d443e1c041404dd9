// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/pulseboard/internal/stream"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pulseboard/config.yaml",
	"/etc/pulseboard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3857,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Stream: StreamConfig{
			IdleTimeout:       90 * time.Second,
			ReapInterval:      15 * time.Second,
			SendBuffer:        256,
			KeepaliveInterval: 15 * time.Second,
			MaxMessageSize:    64 * 1024,
			DefaultRooms: []string{
				stream.RoomKPIs,
				stream.RoomExecutions,
				stream.RoomInsights,
				stream.RoomSystemMetrics,
				stream.RoomSystemAlerts,
				stream.RoomCommunityStream,
				stream.RoomDashboardStats,
			},
		},
		Producer: ProducerConfig{
			CacheTTL:          2 * time.Second,
			QueryTimeout:      800 * time.Millisecond,
			KPIInterval:       5 * time.Second,
			DashboardInterval: 30 * time.Second,
			HealthInterval:    5 * time.Second,
			CommunityInterval: 10 * time.Second,
			ResyncEvery:       12,
			RecentLimit:       20,
			DiskPath:          "/",
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         60 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
			Thresholds: ThresholdConfig{
				CPUWarning:     70,
				CPUCritical:    85,
				MemoryWarning:  80,
				MemoryCritical: 90,
				DiskWarning:    85,
				DiskCritical:   95,
			},
			AlertSuppression: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:      ":memory:",
			MaxMemory: "512MB",
			Threads:   0,
			SeedDemo:  false,
		},
		Ingest: IngestConfig{
			Backend:           IngestBackendMemory,
			Topic:             "pulseboard.events",
			NATSURL:           "nats://127.0.0.1:4222",
			EmbeddedServer:    false,
			StoreDir:          "/data/nats/jetstream",
			QueueGroup:        "pulseboard",
			CommunityThrottle: 500 * time.Millisecond,
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			AdminRole:         "admin",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Client: ClientConfig{
			BaseURL:          "http://localhost:3857",
			Transport:        TransportAuto,
			ReconnectBase:    time.Second,
			ReconnectCeiling: 30 * time.Second,
			HandshakeTimeout: 5 * time.Second,
			Rooms:            []string{stream.RoomKPIs, stream.RoomSystemMetrics},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in defaults without reading files or the environment.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"stream.default_rooms",
	"security.cors_origins",
	"client.rooms",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Streaming server
	"stream_idle_timeout":       "stream.idle_timeout",
	"stream_reap_interval":      "stream.reap_interval",
	"stream_send_buffer":        "stream.send_buffer",
	"stream_keepalive_interval": "stream.keepalive_interval",
	"stream_max_message_size":   "stream.max_message_size",
	"stream_default_rooms":      "stream.default_rooms",

	// Producer
	"producer_cache_ttl":          "producer.cache_ttl",
	"producer_query_timeout":      "producer.query_timeout",
	"producer_kpi_interval":       "producer.kpi_interval",
	"producer_dashboard_interval": "producer.dashboard_interval",
	"producer_health_interval":    "producer.health_interval",
	"producer_community_interval": "producer.community_interval",
	"producer_resync_every":       "producer.resync_every",
	"producer_recent_limit":       "producer.recent_limit",
	"producer_disk_path":          "producer.disk_path",
	"breaker_max_requests":        "producer.breaker.max_requests",
	"breaker_interval":            "producer.breaker.interval",
	"breaker_timeout":             "producer.breaker.timeout",
	"breaker_failure_threshold":   "producer.breaker.failure_threshold",
	"alert_cpu_warning":           "producer.thresholds.cpu_warning",
	"alert_cpu_critical":          "producer.thresholds.cpu_critical",
	"alert_memory_warning":        "producer.thresholds.memory_warning",
	"alert_memory_critical":       "producer.thresholds.memory_critical",
	"alert_disk_warning":          "producer.thresholds.disk_warning",
	"alert_disk_critical":         "producer.thresholds.disk_critical",
	"alert_suppression":           "producer.alert_suppression",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo",

	// Ingest
	"ingest_backend":     "ingest.backend",
	"ingest_topic":       "ingest.topic",
	"nats_url":           "ingest.nats_url",
	"nats_embedded":      "ingest.embedded_server",
	"nats_store_dir":     "ingest.store_dir",
	"nats_queue_group":   "ingest.queue_group",
	"community_throttle": "ingest.community_throttle",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"admin_role":          "security.admin_role",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Client
	"stream_base_url":            "client.base_url",
	"stream_include_credentials": "client.include_credentials",
	"stream_token":               "client.token",
	"stream_transport":           "client.transport",
	"reconnect_base":             "client.reconnect_base",
	"reconnect_ceiling":          "client.reconnect_ceiling",
	"handshake_timeout":          "client.handshake_timeout",
	"stream_rooms":               "client.rooms",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables are skipped so unrelated environment does not leak into config.
//
//   - HTTP_PORT -> server.port
//   - STREAM_IDLE_TIMEOUT -> stream.idle_timeout
//   - RECONNECT_CEILING -> client.reconnect_ceiling
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
