// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package models contains the payload types carried inside stream envelopes:
// KPI snapshots, dashboard statistics, host health, community activity and
// system alerts. JSON field names are the wire names admin clients read.
package models
