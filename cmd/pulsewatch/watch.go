// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tomtom215/pulseboard/internal/client"
	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/stream"
)

func watchCommand(defaults config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Subscribe to rooms and print every event",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "rooms",
				Usage:   "Rooms to subscribe to",
				Value:   defaults.Rooms,
				Sources: cli.EnvVars("STREAM_ROOMS"),
			},
			&cli.StringSliceFlag{
				Name:  "deep",
				Usage: "Deep-merge a field of a topic on update, as topic=field",
			},
			&cli.DurationFlag{
				Name:    "reconnect-base",
				Usage:   "First reconnect delay",
				Value:   defaults.ReconnectBase,
				Sources: cli.EnvVars("RECONNECT_BASE"),
			},
			&cli.DurationFlag{
				Name:    "reconnect-ceiling",
				Usage:   "Maximum reconnect delay",
				Value:   defaults.ReconnectCeiling,
				Sources: cli.EnvVars("RECONNECT_CEILING"),
			},
			&cli.DurationFlag{
				Name:    "handshake-timeout",
				Usage:   "Connection handshake timeout",
				Value:   defaults.HandshakeTimeout,
				Sources: cli.EnvVars("HANDSHAKE_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Exit after this many events (0 runs until interrupted)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := clientConfig(c, defaults)
			cfg.Rooms = c.StringSlice("rooms")
			cfg.ReconnectBase = durationOr(c, "reconnect-base", defaults.ReconnectBase)
			cfg.ReconnectCeiling = durationOr(c, "reconnect-ceiling", defaults.ReconnectCeiling)
			cfg.HandshakeTimeout = durationOr(c, "handshake-timeout", defaults.HandshakeTimeout)

			full := config.Default()
			full.Client = cfg
			if err := full.ValidateClient(); err != nil {
				return err
			}
			deep, err := parseDeep(c.StringSlice("deep"))
			if err != nil {
				return err
			}
			return runWatch(ctx, cfg, deep, stdout(c), int(c.Int("count")))
		},
	}
}

// parseDeep turns topic=field pairs into client options.
func parseDeep(pairs []string) ([]client.Option, error) {
	fields := make(map[string][]string)
	var topics []string
	for _, pair := range pairs {
		topic, field, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("--deep %q: want topic=field", pair)
		}
		if err := stream.ValidateRoom(topic); err != nil {
			return nil, fmt.Errorf("--deep %q: %w", pair, err)
		}
		if _, seen := fields[topic]; !seen {
			topics = append(topics, topic)
		}
		fields[topic] = append(fields[topic], field)
	}
	opts := make([]client.Option, 0, len(topics))
	for _, topic := range topics {
		opts = append(opts, client.WithDeepMerge(topic, fields[topic]...))
	}
	return opts, nil
}

// printer serializes output from the connection goroutine and counts events.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	events int
	limit  int
	done   chan struct{}
	once   sync.Once
}

func (p *printer) line(s string, event bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.events >= p.limit {
		return
	}
	fmt.Fprintln(p.out, s)
	if !event {
		return
	}
	p.events++
	if p.limit > 0 && p.events >= p.limit {
		p.once.Do(func() { close(p.done) })
	}
}

func runWatch(ctx context.Context, cfg config.ClientConfig, opts []client.Option, out io.Writer, limit int) error {
	m, err := client.New(cfg, opts...)
	if err != nil {
		return err
	}

	p := &printer{out: out, limit: limit, done: make(chan struct{})}
	h, err := m.Connect(client.Handlers{
		OnInit: func(topic string, snapshot stream.State) {
			p.line(renderState(stream.KindInit, topic, snapshot), true)
		},
		OnUpdate: func(topic string, merged, _ stream.State) {
			p.line(renderState(stream.KindUpdate, topic, merged), true)
		},
		OnAlert: func(topic string, data json.RawMessage) {
			p.line(renderRaw(stream.KindAlert, topic, data), true)
		},
		OnError: func(topic string, data json.RawMessage) {
			p.line(renderRaw(stream.KindError, topic, data), true)
		},
		OnStatus: func(status client.Status, err error) {
			p.line(renderStatus(status, err), false)
		},
	})
	if err != nil {
		return err
	}
	defer h.Disconnect()

	if _, err := h.Subscribe(cfg.Rooms...); err != nil {
		return err
	}
	p.line(metaStyle.Render(fmt.Sprintf("transport=%s rooms=%s", m.Transport(), strings.Join(h.Rooms(), ","))), false)

	select {
	case <-ctx.Done():
		return nil
	case <-p.done:
		return nil
	case <-h.Done():
		return h.Err()
	}
}
