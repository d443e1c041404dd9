// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package models

import "time"

// KPISnapshot is the payload of the bi-kpis room.
type KPISnapshot struct {
	DailyActivePractitioners      int                   `json:"daily_active_practitioners"`
	CompletionRates               int                   `json:"completion_rates"` // completed sessions
	AverageSessionDurationSeconds int                   `json:"average_session_duration_seconds"`
	MilestoneAchievements         MilestoneAchievements `json:"milestone_achievements"`
	Timestamp                     time.Time             `json:"timestamp"`
	Note                          string                `json:"note,omitempty"`
}

// MilestoneAchievements groups milestone counters.
type MilestoneAchievements struct {
	Total int `json:"total"`
}

// PlaceholderKPIs is served when the aggregate store cannot be reached.
func PlaceholderKPIs(now time.Time) KPISnapshot {
	return KPISnapshot{
		Timestamp: now.UTC(),
		Note:      "Database unavailable - placeholder data",
	}
}

// DashboardStats is the payload of the dashboard-stats room.
type DashboardStats struct {
	TotalUsers             int          `json:"total_users"`
	ActiveToday            int          `json:"active_today"`
	SessionsThisWeek       int          `json:"sessions_this_week"`
	AveragePracticeMinutes float64      `json:"average_practice_minutes"`
	WeeklyTrend            []DailyCount `json:"weekly_trend"`
	Timestamp              time.Time    `json:"timestamp"`
}

// DailyCount is one bucket of a per-day series.
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}
