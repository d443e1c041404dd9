// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Command pulsewatch is a terminal consumer of the Pulseboard stream.
//
//	pulsewatch watch --rooms bi-kpis,system-metrics
//	pulsewatch --transport sse watch --deep system-metrics=cpu
//	pulsewatch token --secret "$JWT_SECRET" --user ops
//	pulsewatch publish --topic system-alerts --kind alert --payload '{"msg":"disk"}'
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("pulsewatch: "+err.Error()))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	defaults := config.Default().Client
	return &cli.Command{
		Name:    "pulsewatch",
		Usage:   "Watch and feed a Pulseboard dashboard stream",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Server base URL (http, https, ws or wss)",
				Value:   defaults.BaseURL,
				Sources: cli.EnvVars("STREAM_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent when --credentials is set",
				Sources: cli.EnvVars("STREAM_TOKEN"),
			},
			&cli.BoolFlag{
				Name:    "credentials",
				Usage:   "Send the token with every request",
				Value:   true,
				Sources: cli.EnvVars("STREAM_INCLUDE_CREDENTIALS"),
			},
			&cli.StringFlag{
				Name:    "transport",
				Usage:   "auto, websocket or sse",
				Value:   defaults.Transport,
				Sources: cli.EnvVars("STREAM_TRANSPORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level for transport diagnostics",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.Init(logging.Config{Level: c.String("log-level"), Format: "console", Output: stderr(c)})
			return ctx, nil
		},
		Commands: []*cli.Command{
			watchCommand(defaults),
			tokenCommand(),
			publishCommand(),
		},
	}
}

// clientConfig builds the client configuration from the root flags.
func clientConfig(c *cli.Command, defaults config.ClientConfig) config.ClientConfig {
	cfg := defaults
	cfg.BaseURL = c.String("url")
	cfg.Token = c.String("token")
	cfg.IncludeCredentials = c.Bool("credentials") && cfg.Token != ""
	cfg.Transport = c.String("transport")
	return cfg
}

func stdout(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func durationOr(c *cli.Command, name string, fallback time.Duration) time.Duration {
	if d := c.Duration(name); d > 0 {
		return d
	}
	return fallback
}
