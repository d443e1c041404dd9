// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package client

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/stream"
)

// maxFrameSize bounds a single event-stream line.
const maxFrameSize = 1 << 20

// FrameReader reads envelopes from a text/event-stream body. Comment lines
// and non-data fields are skipped; malformed frames are logged, counted and
// dropped without ending the stream.
type FrameReader struct {
	scanner   *bufio.Scanner
	malformed int
}

// NewFrameReader wraps an event-stream body.
func NewFrameReader(r io.Reader) *FrameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)
	return &FrameReader{scanner: sc}
}

// Malformed returns how many frames were dropped.
func (f *FrameReader) Malformed() int { return f.malformed }

// Next returns the next well-formed envelope. It returns io.EOF when the
// stream ends cleanly.
func (f *FrameReader) Next() (stream.Envelope, error) {
	var data []string
	for f.scanner.Scan() {
		line := f.scanner.Text()
		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			payload := strings.Join(data, "\n")
			data = data[:0]
			env, err := stream.ParseEnvelope([]byte(payload))
			if err != nil {
				f.drop(payload, err)
				continue
			}
			return env, nil
		case strings.HasPrefix(line, ":"):
			// comment / keepalive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:, id:, retry: carry nothing the envelope does not
		}
	}
	if err := f.scanner.Err(); err != nil {
		return stream.Envelope{}, err
	}
	return stream.Envelope{}, io.EOF
}

func (f *FrameReader) drop(payload string, err error) {
	f.malformed++
	metrics.ClientMalformedFrames.Inc()
	if len(payload) > 128 {
		payload = payload[:128]
	}
	logging.Warn().Err(err).Str("frame", payload).Msg("Dropping malformed stream frame")
}

// ParseSSE calls fn for every well-formed envelope in r until r ends.
// A clean end of stream returns nil.
func ParseSSE(r io.Reader, fn func(stream.Envelope)) error {
	fr := NewFrameReader(r)
	for {
		env, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(env)
	}
}
