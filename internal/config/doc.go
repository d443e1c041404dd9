// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package config provides centralized configuration management for Pulseboard.

Configuration is layered with Koanf v2:

 1. Defaults: built-in values from defaultConfig()
 2. Config file: optional YAML (CONFIG_PATH, ./config.yaml, /etc/pulseboard/config.yaml)
 3. Environment variables: explicit name mapping, highest priority

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, SHUTDOWN_TIMEOUT, ENVIRONMENT

Streaming server:
  - STREAM_IDLE_TIMEOUT: reap sessions with no traffic for this long (default: 90s)
  - STREAM_REAP_INTERVAL: how often the reaper runs (default: 15s)
  - STREAM_SEND_BUFFER: per-session outbound buffer (default: 256 envelopes)
  - STREAM_KEEPALIVE_INTERVAL: fallback stream keepalive comment period (default: 15s)
  - STREAM_DEFAULT_ROOMS: comma-separated rooms a fallback client receives when it names none

Snapshot producer:
  - PRODUCER_CACHE_TTL, PRODUCER_QUERY_TIMEOUT, PRODUCER_RESYNC_EVERY
  - PRODUCER_KPI_INTERVAL, PRODUCER_DASHBOARD_INTERVAL, PRODUCER_HEALTH_INTERVAL, PRODUCER_COMMUNITY_INTERVAL
  - ALERT_CPU_WARNING, ALERT_CPU_CRITICAL, ALERT_MEMORY_WARNING, ALERT_MEMORY_CRITICAL,
    ALERT_DISK_WARNING, ALERT_DISK_CRITICAL, ALERT_SUPPRESSION

Database:
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS, SEED_DEMO_DATA

Ingest:
  - INGEST_BACKEND (memory|nats), INGEST_TOPIC, NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR,
    COMMUNITY_THROTTLE

Security:
  - AUTH_MODE (none|jwt), JWT_SECRET, ADMIN_ROLE, CORS_ORIGINS,
    RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Client (pulsewatch):
  - STREAM_BASE_URL, STREAM_INCLUDE_CREDENTIALS, STREAM_TOKEN, STREAM_TRANSPORT (auto|websocket|sse),
    RECONNECT_BASE, RECONNECT_CEILING, HANDSHAKE_TIMEOUT, STREAM_ROOMS

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
*/
package config
