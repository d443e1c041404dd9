// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tomtom215/pulseboard/internal/auth"
	"github.com/tomtom215/pulseboard/internal/config"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint an HS256 token for the stream endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "Server JWT secret",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Token subject",
				Value: "pulsewatch",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Role claim",
				Value: "admin",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: time.Hour,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			m, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: c.String("secret")}, c.Duration("ttl"))
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(c.String("user"), c.String("role"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout(c), token)
			return err
		},
	}
}
