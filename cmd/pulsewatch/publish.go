// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tomtom215/pulseboard/internal/api"
	"github.com/tomtom215/pulseboard/internal/config"
)

const publishPath = "/api/v1/stream/publish"

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Push one envelope onto the server's ingest bus",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Usage: "Room to deliver to", Required: true},
			&cli.StringFlag{Name: "kind", Usage: "init, update, alert or error", Value: "update"},
			&cli.StringFlag{Name: "payload", Usage: "JSON payload", Required: true},
			&cli.DurationFlag{Name: "timeout", Usage: "Request timeout", Value: 10 * time.Second},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := clientConfig(c, config.Default().Client)
			req := api.PublishRequest{
				Topic:   c.String("topic"),
				Kind:    c.String("kind"),
				Payload: json.RawMessage(c.String("payload")),
			}
			if !json.Valid(req.Payload) {
				return fmt.Errorf("--payload is not valid JSON")
			}
			reqCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
			defer cancel()

			ack, err := publish(reqCtx, http.DefaultClient, cfg, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout(c), "%s %s/%s\n", ack.MessageID, ack.Topic, ack.Kind)
			return err
		},
	}
}

type publishResponse struct {
	Success bool                `json:"success"`
	Data    api.PublishResponse `json:"data"`
	Error   *api.APIError       `json:"error"`
}

func publish(ctx context.Context, hc *http.Client, cfg config.ClientConfig, req api.PublishRequest) (api.PublishResponse, error) {
	target, err := httpURL(cfg.BaseURL, publishPath)
	if err != nil {
		return api.PublishResponse{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return api.PublishResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return api.PublishResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.IncludeCredentials && cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return api.PublishResponse{}, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return api.PublishResponse{}, fmt.Errorf("read publish response: %w", err)
	}
	var out publishResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return api.PublishResponse{}, fmt.Errorf("publish: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !out.Success || out.Error != nil {
		msg := resp.Status
		if out.Error != nil {
			msg = out.Error.Code + ": " + out.Error.Message
		}
		return api.PublishResponse{}, fmt.Errorf("publish rejected: %s", msg)
	}
	return out.Data, nil
}

// httpURL resolves path against base, mapping ws and wss to http and https.
func httpURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL %q has no host", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	return u.String(), nil
}
