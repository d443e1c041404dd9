// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/models"
)

// InsertUser adds a user row.
func (db *DB) InsertUser(ctx context.Context, id, displayName string, createdAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		id, displayName, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// InsertSession adds a practice session row.
func (db *DB) InsertSession(ctx context.Context, userID string, startedAt time.Time, duration time.Duration, completed bool) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO practice_sessions (id, user_id, started_at, duration_seconds, completed) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, startedAt.UTC(), int(duration.Seconds()), completed)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// InsertMilestone adds a milestone row.
func (db *DB) InsertMilestone(ctx context.Context, userID, milestone string, achievedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO milestones (id, user_id, milestone, achieved_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), userID, milestone, achievedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

// SeedDemo fills an empty database with a week of plausible activity for
// development and demos. It is a no-op when users already exist.
func (db *DB) SeedDemo(ctx context.Context, now time.Time) error {
	var existing int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&existing); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if existing > 0 {
		logging.Debug().Int("users", existing).Msg("Skipping demo seed, database not empty")
		return nil
	}

	const (
		numUsers      = 25
		daysOfHistory = 7
	)
	rng := rand.New(rand.NewSource(now.Unix())) //nolint:gosec // demo data only

	names := []string{
		"Asha", "Bodhi", "Chandra", "Dev", "Esha", "Gita", "Hari", "Indra", "Jaya",
		"Kavi", "Lila", "Maya", "Nila", "Om", "Priya", "Ravi", "Sita", "Tara",
		"Uma", "Vani", "Yash", "Zara", "Arun", "Bela", "Charu",
	}
	milestoneNames := []string{"first_session", "seven_day_streak", "hundred_malas", "thirty_day_streak"}
	activityTypes := []string{"post", "reaction", "comment", "share"}

	userIDs := make([]string, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		id := uuid.NewString()
		userIDs = append(userIDs, id)
		joined := now.AddDate(0, 0, -rng.Intn(90)-daysOfHistory)
		if err := db.InsertUser(ctx, id, names[i%len(names)], joined); err != nil {
			return err
		}
	}

	for day := 0; day < daysOfHistory; day++ {
		for _, userID := range userIDs {
			if rng.Float64() < 0.4 {
				continue
			}
			started := now.Add(-time.Duration(day)*24*time.Hour - time.Duration(rng.Intn(20*3600))*time.Second)
			duration := time.Duration(5+rng.Intn(40)) * time.Minute
			if err := db.InsertSession(ctx, userID, started, duration, rng.Float64() < 0.75); err != nil {
				return err
			}
			if rng.Float64() < 0.1 {
				milestone := milestoneNames[rng.Intn(len(milestoneNames))]
				if err := db.InsertMilestone(ctx, userID, milestone, started.Add(duration)); err != nil {
					return err
				}
			}
			if rng.Float64() < 0.3 {
				activity := models.CommunityActivity{
					ID:           uuid.NewString(),
					UserID:       userID,
					ActivityType: activityTypes[rng.Intn(len(activityTypes))],
					Summary:      "Shared a practice reflection",
					CreatedAt:    started.Add(duration),
				}
				if err := db.RecordCommunityActivity(ctx, activity); err != nil {
					return err
				}
			}
		}
	}

	logging.Info().Int("users", numUsers).Int("days", daysOfHistory).Msg("Seeded demo activity")
	return nil
}
