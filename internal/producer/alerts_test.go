// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"testing"
	"time"

	"github.com/tomtom215/pulseboard/internal/models"
)

func TestEvaluateHealth(t *testing.T) {
	tests := []struct {
		name    string
		cpu     float64
		memory  float64
		disk    float64
		overall string
	}{
		{"all healthy", 10, 20, 30, models.HealthHealthy},
		{"cpu warning", 75, 20, 30, models.HealthWarning},
		{"memory critical", 10, 95, 30, models.HealthCritical},
		{"disk at warning boundary", 10, 20, 85, models.HealthWarning},
		{"critical beats warning", 80, 20, 96, models.HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := models.SystemHealth{
				CPU:    models.CPUMetrics{UsagePercent: tt.cpu},
				Memory: models.MemoryMetrics{UsedPercent: tt.memory},
				Disk:   models.DiskMetrics{UsedPercent: tt.disk},
			}
			EvaluateHealth(&h, testConfig().Thresholds)
			if h.Overall != tt.overall {
				t.Errorf("Overall = %s, want %s (components %+v)", h.Overall, tt.overall, h.Components)
			}
		})
	}
}

func TestAlertEvaluatorSuppression(t *testing.T) {
	a := NewAlertEvaluator(testConfig().Thresholds, 5*time.Minute)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	hot := models.SystemHealth{
		CPU:  models.CPUMetrics{UsagePercent: 88},
		Disk: models.DiskMetrics{UsedPercent: 86},
	}

	alerts := a.Evaluate(hot, now)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	if alerts[0].AlertType != AlertHighCPU || alerts[0].Severity != models.SeverityCritical {
		t.Errorf("cpu alert = %+v", alerts[0])
	}
	if alerts[1].AlertType != AlertHighDisk || alerts[1].Severity != models.SeverityWarning {
		t.Errorf("disk alert = %+v", alerts[1])
	}

	if got := a.Evaluate(hot, now.Add(time.Minute)); len(got) != 0 {
		t.Errorf("expected suppression within window, got %d alerts", len(got))
	}
	if got := a.Evaluate(hot, now.Add(5*time.Minute)); len(got) != 2 {
		t.Errorf("expected alerts after window, got %d", len(got))
	}
}

func TestAlertEvaluatorNoSuppression(t *testing.T) {
	a := NewAlertEvaluator(testConfig().Thresholds, 0)
	now := time.Now()
	hot := models.SystemHealth{Memory: models.MemoryMetrics{UsedPercent: 85}}
	for i := 0; i < 3; i++ {
		if got := a.Evaluate(hot, now); len(got) != 1 {
			t.Fatalf("evaluation %d: got %d alerts, want 1", i, len(got))
		}
	}
}
