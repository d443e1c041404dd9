// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package models

import "time"

// CommunityActivity is a single entry in the community activity feed.
type CommunityActivity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type" validate:"required,max=64"`
	Summary      string    `json:"summary,omitempty" validate:"max=500"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommunityFeed is the payload of the community:stream room.
type CommunityFeed struct {
	Recent       []CommunityActivity `json:"recent"`
	CountsByType map[string]int      `json:"counts_by_type"`
	Total24h     int                 `json:"total_24h"`
	Timestamp    time.Time           `json:"timestamp"`
}
