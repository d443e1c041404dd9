// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package services adapts the server's components to suture.Service.
package services

import (
	"context"
)

// ContextRunner is satisfied by the room router, the snapshot ticker and
// the ingest forwarder.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner. name shows up in supervisor logs.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *RunnerService) String() string {
	return s.name
}
