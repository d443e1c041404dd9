// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/models"
)

// Alert types raised from health snapshots.
const (
	AlertHighCPU    = "high_cpu"
	AlertHighMemory = "high_memory"
	AlertHighDisk   = "high_disk"
)

// AlertEvaluator turns health snapshots into threshold alerts. Each alert
// type is allowed once per suppression window regardless of severity.
type AlertEvaluator struct {
	thresholds  config.ThresholdConfig
	suppression time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAlertEvaluator creates an evaluator. A zero suppression window disables suppression.
func NewAlertEvaluator(thresholds config.ThresholdConfig, suppression time.Duration) *AlertEvaluator {
	return &AlertEvaluator{
		thresholds:  thresholds,
		suppression: suppression,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Evaluate returns the alerts h raises at now, minus suppressed ones.
func (a *AlertEvaluator) Evaluate(h models.SystemHealth, now time.Time) []models.SystemAlert {
	checks := []struct {
		alertType string
		label     string
		value     float64
		warning   float64
		critical  float64
	}{
		{AlertHighCPU, "CPU usage", h.CPU.UsagePercent, a.thresholds.CPUWarning, a.thresholds.CPUCritical},
		{AlertHighMemory, "Memory usage", h.Memory.UsedPercent, a.thresholds.MemoryWarning, a.thresholds.MemoryCritical},
		{AlertHighDisk, "Disk usage", h.Disk.UsedPercent, a.thresholds.DiskWarning, a.thresholds.DiskCritical},
	}

	var alerts []models.SystemAlert
	for _, c := range checks {
		var severity string
		var threshold float64
		switch classify(c.value, c.warning, c.critical) {
		case models.HealthCritical:
			severity, threshold = models.SeverityCritical, c.critical
		case models.HealthWarning:
			severity, threshold = models.SeverityWarning, c.warning
		default:
			continue
		}

		if !a.allow(c.alertType, now) {
			metrics.RecordAlert(c.alertType, severity, true)
			logging.Debug().Str("alert_type", c.alertType).Msg("Alert suppressed")
			continue
		}
		metrics.RecordAlert(c.alertType, severity, false)

		alerts = append(alerts, models.SystemAlert{
			ID:        uuid.NewString(),
			AlertType: c.alertType,
			Severity:  severity,
			Message:   fmt.Sprintf("%s at %.1f%% exceeds %.0f%%", c.label, c.value, threshold),
			MetricData: map[string]interface{}{
				"value":     c.value,
				"threshold": threshold,
			},
			RaisedAt: now.UTC(),
		})
	}
	return alerts
}

func (a *AlertEvaluator) allow(alertType string, now time.Time) bool {
	if a.suppression <= 0 {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	lim, ok := a.limiters[alertType]
	if !ok {
		lim = rate.NewLimiter(rate.Every(a.suppression), 1)
		a.limiters[alertType] = lim
	}
	return lim.AllowN(now, 1)
}
