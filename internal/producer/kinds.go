// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"errors"
	"sort"

	"github.com/tomtom215/pulseboard/internal/stream"
)

// Snapshot kinds.
const (
	KindKPIs      = "kpis"
	KindDashboard = "dashboard"
	KindHealth    = "health"
	KindCommunity = "community"
)

// ErrUnknownKind is returned for a snapshot kind the producer does not serve.
var ErrUnknownKind = errors.New("unknown snapshot kind")

var kindRooms = map[string]string{
	KindKPIs:      stream.RoomKPIs,
	KindDashboard: stream.RoomDashboardStats,
	KindHealth:    stream.RoomSystemMetrics,
	KindCommunity: stream.RoomCommunityStream,
}

// Kinds returns every snapshot kind in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(kindRooms))
	for k := range kindRooms {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RoomFor returns the room a kind is emitted to.
func RoomFor(kind string) (string, bool) {
	room, ok := kindRooms[kind]
	return room, ok
}

// KindForRoom returns the snapshot kind that feeds room.
func KindForRoom(room string) (string, bool) {
	for kind, r := range kindRooms {
		if r == room {
			return kind, true
		}
	}
	return "", false
}
