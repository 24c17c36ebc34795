// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package main is the entry point for the PlacePulse notification server.
//
// PlacePulse is the realtime notification core of a location-based
// places and events platform. It fans mutation events (new places, new
// or changed events, personal notifications) out to connected WebSocket
// clients over three feeds:
//
//   - /ws/events                               platform-wide announcements
//   - /ws/notifications                        personal feed (JWT required)
//   - /ws/location/{lat}/{lng}?radius=km       events near a coordinate
//
// # Startup order
//
//  1. Configuration (Koanf v2: defaults, YAML file, PLACEPULSE_* env vars)
//  2. Logging (zerolog)
//  3. DuckDB store for places, events, and attendees
//  4. Realtime core: topic registry, session index, offline inbox
//  5. Dispatcher and proximity watcher
//  6. Mutation ingest (in-process Pub/Sub, or NATS when enabled;
//     optionally an embedded NATS broker)
//  7. Reminder scheduler
//  8. HTTP server with the WebSocket feeds
//
// Steps 6-8 run under a Suture supervision tree; SIGINT/SIGTERM drains
// them gracefully.
//
// # Configuration
//
// Every configuration key maps to a PLACEPULSE_ environment variable,
// e.g. PLACEPULSE_SERVER_PORT=8642 or PLACEPULSE_SECURITY_JWT_SECRET=...
// An optional YAML file (PLACEPULSE_CONFIG=/etc/placepulse.yaml) sits
// between the defaults and the environment.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/placepulse/placepulse/internal/api"
	"github.com/placepulse/placepulse/internal/auth"
	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/dispatch"
	"github.com/placepulse/placepulse/internal/geoloc"
	"github.com/placepulse/placepulse/internal/ingest"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/reminder"
	"github.com/placepulse/placepulse/internal/store"
	"github.com/placepulse/placepulse/internal/supervisor"
	"github.com/placepulse/placepulse/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("reminders_enabled", cfg.Reminders.Enabled).
		Msg("Starting PlacePulse notification server")

	st, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime core.
	registry := ws.NewRegistry()
	index := ws.NewIndex()
	inbox := dispatch.NewInbox(0)
	dispatcher := dispatch.New(registry, inbox)
	watcher := dispatch.NewWatcher(index, dispatcher)

	// Mutation ingest: the consumer persists mutations and hands them to
	// the dispatcher for fan-out.
	consumer := ingest.NewConsumer(st, dispatcher, watcher)
	subscriber, broker, err := buildSubscriber(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize ingest transport")
	}
	if broker != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := broker.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded broker shutdown incomplete")
			}
		}()
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})

	tree.AddIngestService(supervisor.NewIngestService(func() (*message.Router, error) {
		return ingest.NewRouter(subscriber, consumer)
	}))

	if cfg.Reminders.Enabled {
		tree.AddDeliveryService(reminder.New(st, dispatcher, cfg.Reminders))
		logging.Info().
			Dur("interval", cfg.Reminders.Interval).
			Dur("lead", cfg.Reminders.Lead).
			Msg("Reminder scheduler enabled")
	}

	seeder := api.NewSeeder(geoloc.New(st), st, cfg.Feeds.SeedLimit)
	handler := api.NewHandler(cfg, registry, index, inbox, jwtManager, seeder, st)
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server.Addr(), api.NewRouter(handler, cfg), cfg.Server.Timeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}

// buildSubscriber picks the ingest transport: core NATS when enabled
// (optionally against an embedded broker), otherwise an in-process
// Pub/Sub that keeps single-binary deployments broker-free.
func buildSubscriber(cfg *config.Config) (message.Subscriber, *ingest.EmbeddedBroker, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("Mutation ingest on in-process Pub/Sub")
		return ingest.NewGoChannelPubSub(), nil, nil
	}

	var broker *ingest.EmbeddedBroker
	if cfg.NATS.EmbeddedServer {
		var err error
		broker, err = ingest.NewEmbeddedBroker(&cfg.NATS)
		if err != nil {
			return nil, nil, err
		}
		cfg.NATS.URL = broker.ClientURL()
		logging.Info().Str("url", cfg.NATS.URL).Msg("Embedded NATS broker started")
	}

	subscriber, err := ingest.NewNATSSubscriber(&cfg.NATS)
	if err != nil {
		if broker != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = broker.Shutdown(shutdownCtx)
		}
		return nil, nil, err
	}
	logging.Info().Str("url", cfg.NATS.URL).Msg("Mutation ingest on NATS")
	return subscriber, broker, nil
}
