// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/logging"
)

// EmbeddedBroker runs an in-process NATS server for single-binary
// deployments that still want the platform's data layer to connect
// over the wire.
type EmbeddedBroker struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedBroker creates and starts the embedded NATS server.
func NewEmbeddedBroker(cfg *config.NATSConfig) (*EmbeddedBroker, error) {
	opts := &server.Options{
		ServerName: "placepulse-ingest",
		Host:       "127.0.0.1",
		Port:       -1, // pick a free port
		JetStream:  false,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within timeout")
	}

	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS broker started")
	return &EmbeddedBroker{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (b *EmbeddedBroker) ClientURL() string {
	return b.clientURL
}

// Shutdown stops the server, waiting until it is fully down or the
// context is cancelled.
func (b *EmbeddedBroker) Shutdown(ctx context.Context) error {
	b.server.Shutdown()

	done := make(chan struct{})
	go func() {
		b.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
