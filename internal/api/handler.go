// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package api exposes the HTTP surface of the notification core: the
// three WebSocket feeds, the token-issuing login endpoint, health, and
// Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/placepulse/placepulse/internal/auth"
	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/dispatch"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/store"
	"github.com/placepulse/placepulse/internal/ws"
)

// Handler carries the shared dependencies of the HTTP endpoints.
type Handler struct {
	cfg      *config.Config
	registry *ws.Registry
	index    *ws.Index
	inbox    *dispatch.Inbox
	jwt      *auth.JWTManager
	seeder   *Seeder
	store    *store.Store
}

// NewHandler creates a Handler wired to the given components.
func NewHandler(cfg *config.Config, registry *ws.Registry, index *ws.Index, inbox *dispatch.Inbox, jwt *auth.JWTManager, seeder *Seeder, st *store.Store) *Handler {
	return &Handler{
		cfg:      cfg,
		registry: registry,
		index:    index,
		inbox:    inbox,
		jwt:      jwt,
		seeder:   seeder,
		store:    st,
	}
}

// getUpgrader returns a WebSocket upgrader with origin checking.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the
// configured CORS origins. Requests without an Origin header are
// rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("websocket connection rejected: missing origin header")
		return false
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().
		Str("origin", origin).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection rejected: origin not allowed")
	return false
}

// sessionConfig derives the per-session knobs from configuration.
func (h *Handler) sessionConfig() ws.SessionConfig {
	return ws.SessionConfig{
		SendBuffer:           h.cfg.Feeds.SendBuffer,
		InboundRatePerSecond: h.cfg.Feeds.InboundRatePerSecond,
		ExpandNeighborCells:  h.cfg.Feeds.ExpandNeighborCells,
		DefaultRadiusKm:      h.cfg.Feeds.DefaultRadiusKm,
		OnClose:              func(s *ws.Session) { h.index.Remove(s) },
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health reports liveness plus a snapshot of the realtime core.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := "ok"
	database := "up"
	if err := h.store.Ping(r.Context()); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("health check database ping failed")
		status = http.StatusServiceUnavailable
		health = "degraded"
		database = "down"
	}

	writeJSON(w, status, map[string]any{
		"status":   health,
		"database": database,
		"sessions": h.index.Len(),
		"topics":   h.registry.TopicCount(),
	})
}

// loginRequest is the credentials payload for Login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies the configured admin credentials and issues a JWT for
// the personal notifications feed. Login is disabled (404) when no
// admin user is configured; tokens are then minted by the wider
// platform.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Security.AdminUsername == "" {
		writeError(w, http.StatusNotFound, "login disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != h.cfg.Security.AdminUsername ||
		!auth.VerifyPassword(h.cfg.Security.AdminPasswordHash, req.Password) {
		logger := logging.Ctx(r.Context())
		logger.Warn().
			Str("username", req.Username).
			Str("remote_addr", r.RemoteAddr).
			Msg("login failed")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, req.Username)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("failed to generate token")
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.cfg.Security.SessionTimeout.Seconds()),
	})
}
