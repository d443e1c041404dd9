// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/pulseboard/internal/models"
)

// trendDays is the length of the dashboard weekly trend.
const trendDays = 7

// KPIs computes the rolling 24 hour BI key performance indicators ending at now.
func (db *DB) KPIs(ctx context.Context, now time.Time) (models.KPISnapshot, error) {
	now = now.UTC()
	since := now.Add(-24 * time.Hour)

	var kpi models.KPISnapshot
	var avg float64
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT user_id),
			COUNT(*) FILTER (WHERE completed),
			COALESCE(AVG(duration_seconds), 0)
		FROM practice_sessions
		WHERE started_at >= ? AND started_at <= ?`,
		since, now,
	).Scan(&kpi.DailyActivePractitioners, &kpi.CompletionRates, &avg)
	if err != nil {
		return models.KPISnapshot{}, fmt.Errorf("query session kpis: %w", err)
	}
	kpi.AverageSessionDurationSeconds = int(avg + 0.5)

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM milestones WHERE achieved_at >= ? AND achieved_at <= ?`,
		since, now,
	).Scan(&kpi.MilestoneAchievements.Total)
	if err != nil {
		return models.KPISnapshot{}, fmt.Errorf("query milestone kpis: %w", err)
	}

	kpi.Timestamp = now
	return kpi, nil
}

// DashboardStats computes the admin dashboard summary ending at now.
// WeeklyTrend always holds trendDays entries, oldest first, with zero-count
// days included.
func (db *DB) DashboardStats(ctx context.Context, now time.Time) (models.DashboardStats, error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := midnight.AddDate(0, 0, -(trendDays - 1))

	var stats models.DashboardStats
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return models.DashboardStats{}, fmt.Errorf("count users: %w", err)
	}

	var avgSeconds float64
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT user_id) FILTER (WHERE started_at >= ?),
			COUNT(*),
			COALESCE(AVG(duration_seconds), 0)
		FROM practice_sessions
		WHERE started_at >= ? AND started_at <= ?`,
		midnight, weekStart, now,
	).Scan(&stats.ActiveToday, &stats.SessionsThisWeek, &avgSeconds)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("query weekly sessions: %w", err)
	}
	stats.AveragePracticeMinutes = float64(int(avgSeconds/60*100+0.5)) / 100

	rows, err := db.conn.QueryContext(ctx, `
		SELECT CAST(started_at AS DATE) AS day, COUNT(*)
		FROM practice_sessions
		WHERE started_at >= ? AND started_at <= ?
		GROUP BY day`,
		weekStart, now,
	)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("query weekly trend: %w", err)
	}
	defer closeQuietly(rows)

	counts := make(map[string]int, trendDays)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return models.DashboardStats{}, fmt.Errorf("scan weekly trend: %w", err)
		}
		counts[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return models.DashboardStats{}, fmt.Errorf("iterate weekly trend: %w", err)
	}

	stats.WeeklyTrend = make([]models.DailyCount, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		stats.WeeklyTrend = append(stats.WeeklyTrend, models.DailyCount{Day: day, Count: counts[day]})
	}
	stats.Timestamp = now
	return stats, nil
}

// CommunityFeed returns the most recent community activity and 24 hour
// counts by activity type.
func (db *DB) CommunityFeed(ctx context.Context, now time.Time, limit int) (models.CommunityFeed, error) {
	now = now.UTC()
	if limit <= 0 {
		limit = 20
	}

	feed := models.CommunityFeed{
		Recent:       []models.CommunityActivity{},
		CountsByType: map[string]int{},
		Timestamp:    now,
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, activity_type, COALESCE(summary, ''), created_at
		FROM community_activity
		WHERE created_at <= ?
		ORDER BY created_at DESC, id
		LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return models.CommunityFeed{}, fmt.Errorf("query recent activity: %w", err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var a models.CommunityActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Summary, &a.CreatedAt); err != nil {
			return models.CommunityFeed{}, fmt.Errorf("scan recent activity: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		feed.Recent = append(feed.Recent, a)
	}
	if err := rows.Err(); err != nil {
		return models.CommunityFeed{}, fmt.Errorf("iterate recent activity: %w", err)
	}

	typeRows, err := db.conn.QueryContext(ctx, `
		SELECT activity_type, COUNT(*)
		FROM community_activity
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY activity_type`,
		now.Add(-24*time.Hour), now,
	)
	if err != nil {
		return models.CommunityFeed{}, fmt.Errorf("query activity counts: %w", err)
	}
	defer closeQuietly(typeRows)
	for typeRows.Next() {
		var activityType string
		var count int
		if err := typeRows.Scan(&activityType, &count); err != nil {
			return models.CommunityFeed{}, fmt.Errorf("scan activity counts: %w", err)
		}
		feed.CountsByType[activityType] = count
		feed.Total24h += count
	}
	if err := typeRows.Err(); err != nil {
		return models.CommunityFeed{}, fmt.Errorf("iterate activity counts: %w", err)
	}
	return feed, nil
}

// RecordCommunityActivity stores one community event. Duplicate IDs are ignored
// so redelivered ingest messages are idempotent.
func (db *DB) RecordCommunityActivity(ctx context.Context, a models.CommunityActivity) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO community_activity (id, user_id, activity_type, summary, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.UserID, a.ActivityType, a.Summary, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert community activity: %w", err)
	}
	return nil
}
