// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/placepulse/placepulse/internal/logging"
)

const httpShutdownTimeout = 10 * time.Second

// HTTPService runs the HTTP server under supervision. A fresh
// http.Server is built on every Serve call: a server that has been
// Shutdown refuses to listen again, which would turn one crash into a
// permanent failure loop.
type HTTPService struct {
	addr    string
	handler http.Handler
	timeout time.Duration
}

// NewHTTPService creates a supervised HTTP server service.
func NewHTTPService(addr string, handler http.Handler, timeout time.Duration) *HTTPService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPService{addr: addr, handler: handler, timeout: timeout}
}

// Serve listens until the context is canceled, then drains in-flight
// requests. Open WebSocket sessions are closed by their own pumps when
// the underlying connections drop.
func (s *HTTPService) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.timeout,
		IdleTimeout:       2 * s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete, forcing close")
			_ = server.Close()
		}
		<-errCh
		return ctx.Err()

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string { return "http-server" }

// IngestService runs the mutation ingest router under supervision. A
// Watermill router cannot be re-run once closed, so the service builds
// a new one each time it is (re)started.
type IngestService struct {
	build func() (*message.Router, error)
}

// NewIngestService creates a supervised ingest router service; build
// is invoked on every (re)start.
func NewIngestService(build func() (*message.Router, error)) *IngestService {
	return &IngestService{build: build}
}

// Serve runs the router until the context is canceled.
func (s *IngestService) Serve(ctx context.Context) error {
	router, err := s.build()
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			logging.Warn().Err(err).Msg("ingest router close failed")
		}
	}()

	return router.Run(ctx)
}

// String names the service in supervisor logs.
func (s *IngestService) String() string { return "ingest-router" }
