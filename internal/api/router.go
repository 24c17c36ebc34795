// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/placepulse/placepulse/internal/config"
)

// NewRouter assembles the HTTP surface: WebSocket feeds under /ws,
// the REST endpoints under /api/v1, and Prometheus metrics.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow))
		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
	})

	// Feed handshakes get their own, tighter budget: reconnect storms
	// should back off instead of thrashing the upgrader.
	r.Route("/ws", func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, cfg.Server.RateLimitWindow))
		r.Get("/events", h.EventsFeed)
		r.Get("/notifications", h.NotificationsFeed)
		r.Get("/location/{latitude}/{longitude}", h.LocationFeed)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
