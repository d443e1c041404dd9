// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

// Package main is the Pulseboard streaming server.
//
// The server produces dashboard snapshots from DuckDB and host metrics,
// fans them out to rooms, and serves them to admin dashboards over
// websocket sessions with a server-sent events fallback. Push updates from
// other services arrive on the ingest bus (in-process or NATS) and are
// forwarded into the same rooms.
//
// # Startup order
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging
//  3. DuckDB aggregate store, optionally seeded with demo data
//  4. Snapshot producer and room router
//  5. Ingest bus and forwarder
//  6. Authentication and HTTP routes
//  7. Supervisor tree
//
// # Signals
//
// SIGINT and SIGTERM cancel the supervisor tree. Sessions are closed,
// the HTTP server drains for up to server.shutdown_timeout, and the bus
// and database are closed last.
//
// # Example
//
//	export AUTH_MODE=jwt
//	export JWT_SECRET=$(openssl rand -base64 48)
//	export SEED_DEMO_DATA=true
//	./pulseboard
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/pulseboard/internal/api"
	"github.com/tomtom215/pulseboard/internal/auth"
	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/database"
	"github.com/tomtom215/pulseboard/internal/ingest"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/metrics"
	"github.com/tomtom215/pulseboard/internal/producer"
	"github.com/tomtom215/pulseboard/internal/supervisor"
	"github.com/tomtom215/pulseboard/internal/supervisor/services"
	"github.com/tomtom215/pulseboard/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Str("ingest_backend", cfg.Ingest.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Pulseboard")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedDemo {
		if err := db.SeedDemo(context.Background(), time.Now()); err != nil {
			return err
		}
		logging.Info().Msg("Demo data seeded")
	}

	snapshots := producer.New(db, producer.NewHostSampler(cfg.Producer.DiskPath), cfg.Producer)
	router := websocket.NewRouter(cfg.Stream, websocket.WithInitProvider(snapshots))
	ticker := producer.NewTicker(snapshots, router, cfg.Producer)

	bus, err := ingest.NewBus(cfg.Ingest)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest bus")
		}
	}()
	forwarder := ingest.NewForwarder(bus.Subscriber(), cfg.Ingest.Topic, router,
		ingest.WithRecorder(db),
		ingest.WithCommunityThrottle(cfg.Ingest.CommunityThrottle),
	)
	publisher := ingest.NewPublisher(bus.Publisher(), cfg.Ingest.Topic)

	authMw, err := newAuthMiddleware(cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(router, snapshots, publisher, db, cfg)
	httpRouter := api.NewRouter(handler, authMw, api.ChiMiddlewareConfigFrom(cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpRouter.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		// No WriteTimeout: stream responses stay open.
		IdleTimeout: 120 * time.Second,
	}
	httpSvc := services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout)
	httpSvc.OnShutdown(func() {
		n := router.CloseAll(websocket.ReasonShutdown)
		logging.Info().Int("sessions_closed", n).Msg("Closed stream sessions before HTTP drain")
	})

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddDataService(services.NewRunnerService("snapshot-ticker", ticker))
	tree.AddMessagingService(services.NewRunnerService("room-router", router))
	tree.AddMessagingService(services.NewRunnerService("ingest-forwarder", forwarder))
	tree.AddAPIService(httpSvc)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	runErr := supervisor.Wait(ctx, errCh)
	cancel()
	logging.Info().Msg("Supervisor tree stopped")

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	return runErr
}

func newAuthMiddleware(cfg *config.Config) (*auth.Middleware, error) {
	if cfg.Security.AuthMode != auth.ModeJWT {
		logging.Warn().Msg("Authentication disabled (AUTH_MODE=none); stream endpoints are open")
		return auth.NewMiddleware(nil, cfg.Security), nil
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security, 0)
	if err != nil {
		return nil, err
	}
	return auth.NewMiddleware(jwtManager, cfg.Security), nil
}
