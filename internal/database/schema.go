// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package database

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		display_name VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_sessions (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_practice_sessions_started ON practice_sessions(started_at)`,
	`CREATE TABLE IF NOT EXISTS milestones (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		milestone VARCHAR NOT NULL,
		achieved_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS community_activity (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		activity_type VARCHAR NOT NULL,
		summary VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_community_activity_created ON community_activity(created_at)`,
}
