// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

/*
Package database is the aggregate store behind the snapshot producer.

It wraps a DuckDB connection holding the activity tables the dashboards
summarize:

  - users: registered practitioners
  - practice_sessions: one row per practice session, with duration and completion
  - milestones: achievements unlocked by users
  - community_activity: posts, reactions and other community events

All dashboard queries are read-only aggregates bounded by the caller's
context. The only write paths are RecordCommunityActivity (fed by the ingest
forwarder) and SeedDemo (development data).

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	kpis, err := db.KPIs(ctx, time.Now())
*/
package database
