// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package models

import "time"

// Health status values, ordered by severity.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// SystemHealth is the payload of the system-metrics room.
type SystemHealth struct {
	Overall    string           `json:"overall"`
	Components HealthComponents `json:"components"`
	CPU        CPUMetrics       `json:"cpu"`
	Memory     MemoryMetrics    `json:"memory"`
	Disk       DiskMetrics      `json:"disk"`
	Process    ProcessMetrics   `json:"process"`
	Load       []float64        `json:"load_average"`
	Uptime     uint64           `json:"uptime_seconds"`
	SampledAt  time.Time        `json:"sampled_at"`
}

// HealthComponents is the per-component status.
type HealthComponents struct {
	CPU     string `json:"cpu"`
	Memory  string `json:"memory"`
	Disk    string `json:"disk"`
	Process string `json:"process"`
}

type CPUMetrics struct {
	Count        int     `json:"count"`
	UsagePercent float64 `json:"usage_percent"`
	Model        string  `json:"model,omitempty"`
}

type MemoryMetrics struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type DiskMetrics struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type ProcessMetrics struct {
	PID        int32  `json:"pid"`
	RSSBytes   uint64 `json:"rss_bytes"`
	Goroutines int    `json:"goroutines"`
}

// WorseOf returns the more severe of two health statuses.
func WorseOf(a, b string) string {
	if severity(b) > severity(a) {
		return b
	}
	return a
}

func severity(s string) int {
	switch s {
	case HealthCritical:
		return 2
	case HealthWarning:
		return 1
	default:
		return 0
	}
}
