// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package models

import "time"

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SystemAlert is the payload of alert-kind envelopes on the system-alerts room.
type SystemAlert struct {
	ID         string                 `json:"id"`
	AlertType  string                 `json:"alert_type" validate:"required,max=64"`
	Severity   string                 `json:"severity" validate:"required,oneof=info warning critical"`
	Message    string                 `json:"message" validate:"required,max=1000"`
	MetricData map[string]interface{} `json:"metric_data,omitempty"`
	RaisedAt   time.Time              `json:"raised_at"`
}
