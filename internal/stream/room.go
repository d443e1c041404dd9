// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package stream

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rooms carried by the server.
const (
	RoomKPIs            = "bi-kpis"
	RoomExecutions      = "bi-executions"
	RoomInsights        = "bi-insights"
	RoomSystemMetrics   = "system-metrics"
	RoomSystemAlerts    = "system-alerts"
	RoomCommunityStream = "community:stream"
	RoomDashboardStats  = "dashboard-stats"

	// RoomControl carries replies to control messages on one session. It is
	// never joined; clients accept it implicitly.
	RoomControl = "stream:control"
)

// MaxRoomNameLength bounds room names.
const MaxRoomNameLength = 64

// ErrInvalidRoom is returned for room names that break the naming convention.
var ErrInvalidRoom = errors.New("invalid room name")

var roomPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-:][a-z0-9]+)*$`)

// ValidateRoom checks a room name: lowercase alphanumeric words separated by
// single '-' or ':' characters, no spaces.
func ValidateRoom(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRoom)
	}
	if len(name) > MaxRoomNameLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidRoom, name, MaxRoomNameLength)
	}
	if !roomPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, name)
	}
	return nil
}

// Features maps a feature prefix used in control messages to its rooms.
var Features = map[string][]string{
	"bi":        {RoomKPIs, RoomExecutions, RoomInsights},
	"system":    {RoomSystemMetrics, RoomSystemAlerts},
	"community": {RoomCommunityStream},
	"dashboard": {RoomDashboardStats},
}

// FeatureRooms returns the rooms of a feature, or nil for an unknown feature.
func FeatureRooms(feature string) []string {
	rooms, ok := Features[feature]
	if !ok {
		return nil
	}
	out := make([]string, len(rooms))
	copy(out, rooms)
	return out
}

// FeatureOf returns the feature a room belongs to, or "" if none.
func FeatureOf(room string) string {
	for feature, rooms := range Features {
		for _, r := range rooms {
			if r == room {
				return feature
			}
		}
	}
	return ""
}

// ParseRoomList splits a comma-separated list, trims entries, drops empties
// and duplicates, and validates every name. The result is sorted.
func ParseRoomList(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	return NormalizeRooms(strings.Split(list, ","))
}

// NormalizeRooms trims, validates, de-duplicates and sorts room names.
func NormalizeRooms(rooms []string) ([]string, error) {
	seen := make(map[string]struct{}, len(rooms))
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if err := ValidateRoom(r); err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}
