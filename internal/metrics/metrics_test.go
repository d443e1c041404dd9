// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordEmit(t *testing.T) {
	before := testutil.ToFloat64(StreamEnvelopesDelivered.WithLabelValues("metrics-test-room"))
	RecordEmit("metrics-test-room", "update", 3)
	RecordEmit("metrics-test-room", "update", 0)

	if got := testutil.ToFloat64(StreamEnvelopesDelivered.WithLabelValues("metrics-test-room")) - before; got != 3 {
		t.Errorf("delivered delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(StreamEnvelopesEmitted.WithLabelValues("metrics-test-room", "update")); got < 2 {
		t.Errorf("emitted = %v, want >= 2", got)
	}
}

func TestSessionGauge(t *testing.T) {
	g := StreamSessionsActive.WithLabelValues("metrics-test")
	before := testutil.ToFloat64(g)

	RecordSessionOpened("metrics-test")
	RecordSessionOpened("metrics-test")
	RecordSessionClosed("metrics-test", "client_gone")

	if got := testutil.ToFloat64(g) - before; got != 1 {
		t.Errorf("active sessions delta = %v, want 1", got)
	}
}

func TestRecordReconnectAttempt(t *testing.T) {
	RecordReconnectAttempt("metrics-ws", nil)
	RecordReconnectAttempt("metrics-ws", errors.New("refused"))
	RecordReconnectAttempt("metrics-ws", errors.New("refused"))

	if got := testutil.ToFloat64(ClientReconnectAttempts.WithLabelValues("metrics-ws", "failure")); got != 2 {
		t.Errorf("failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ClientReconnectAttempts.WithLabelValues("metrics-ws", "success")); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
}

func TestRecordProduceObservesHistogram(t *testing.T) {
	RecordProduce("metrics-kind", 20*time.Millisecond, true)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() != "producer_snapshot_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "kind" && lp.GetValue() == "metrics-kind" {
					hist = m.GetHistogram()
				}
			}
		}
	}
	if hist == nil {
		t.Fatal("histogram sample for metrics-kind not found")
	}
	if hist.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", hist.GetSampleCount())
	}
	if got := testutil.ToFloat64(ProducerDegraded.WithLabelValues("metrics-kind")); got != 1 {
		t.Errorf("degraded = %v, want 1", got)
	}
}
