// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/placepulse/placepulse/internal/auth"
	"github.com/placepulse/placepulse/internal/geo"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/ws"
)

// EventsFeed upgrades to the general feed: every connection joins the
// global topic and receives all platform-wide announcements.
func (h *Handler) EventsFeed(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedEvents, "upgrade_failed").Inc()
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("events feed upgrade failed")
		return
	}

	session := ws.NewSession(ws.FeedEvents, conn, h.registry, "", h.sessionConfig())
	h.index.Add(session)
	session.JoinTopic(ws.TopicGlobal)
	h.queueEstablished(session)
	session.Start()
}

// NotificationsFeed upgrades to the personal feed. It requires a valid
// JWT (Authorization header, token query parameter, or cookie);
// anonymous requests are rejected before any topic membership exists.
// Notifications buffered while the user was offline are flushed as an
// unread_notifications frame right after the acknowledgement.
func (h *Handler) NotificationsFeed(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedNotifications, "anonymous").Inc()
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("notifications feed rejected: invalid or missing token")
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedNotifications, "upgrade_failed").Inc()
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("notifications feed upgrade failed")
		return
	}

	session := ws.NewSession(ws.FeedNotifications, conn, h.registry, claims.UserID, h.sessionConfig())
	h.index.Add(session)
	session.JoinTopic(ws.UserTopic(claims.UserID))
	h.queueEstablished(session)

	pending := h.inbox.Drain(claims.UserID)
	if len(pending) > 0 {
		if err := session.Deliver(ws.NewUnreadNotificationsFrame(pending)); err != nil {
			logging.Warn().Err(err).
				Str("user_id", claims.UserID).
				Int("count", len(pending)).
				Msg("failed to queue unread notifications")
		}
	}

	session.Start()

	logger := logging.Ctx(r.Context())
	logger.Info().
		Str("user_id", claims.UserID).
		Uint64("session", session.ID()).
		Msg("personal notification feed connected")
}

// LocationFeed upgrades to a location-scoped feed. Coordinates come
// from the URL path, the radius (km) from the query string. The
// connection joins the geographic topic of the coordinate's cell and
// is seeded with one current_events frame before live delivery starts;
// a failed seed closes the connection.
func (h *Handler) LocationFeed(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(chi.URLParam(r, "latitude"), 64)
	lng, lngErr := strconv.ParseFloat(chi.URLParam(r, "longitude"), 64)
	if latErr != nil || lngErr != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "bad_params").Inc()
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	if err := geo.Validate(lat, lng); err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "bad_params").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	radius := h.cfg.Feeds.DefaultRadiusKm
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "bad_params").Inc()
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radius = parsed
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "upgrade_failed").Inc()
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("location feed upgrade failed")
		return
	}

	session := ws.NewSession(ws.FeedLocation, conn, h.registry, "", h.sessionConfig())
	h.index.Add(session)
	if err := session.SetLocation(lat, lng, radius); err != nil {
		// Unreachable after Validate above, but SetLocation re-checks.
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "bad_params").Inc()
		session.Close()
		return
	}
	h.queueEstablished(session)

	events, err := h.seeder.UpcomingNearby(r.Context(), lat, lng, radius)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "seed_failed").Inc()
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).
			Float64("latitude", lat).
			Float64("longitude", lng).
			Msg("location feed seed query failed, closing connection")
		session.Close()
		return
	}
	if err := session.Deliver(ws.NewCurrentEventsFrame(lat, lng, radius, events)); err != nil {
		metrics.ConnectionsRejected.WithLabelValues(ws.FeedLocation, "seed_failed").Inc()
		session.Close()
		return
	}

	session.Start()

	logger := logging.Ctx(r.Context())
	logger.Info().
		Float64("latitude", lat).
		Float64("longitude", lng).
		Float64("radius_km", radius).
		Int("seeded_events", len(events)).
		Uint64("session", session.ID()).
		Msg("location feed connected")
}

// queueEstablished enqueues the connection acknowledgement; it is
// always the first frame a client reads.
func (h *Handler) queueEstablished(session *ws.Session) {
	if err := session.Deliver(ws.NewConnectionEstablishedFrame()); err != nil {
		logging.Warn().Err(err).Uint64("session", session.ID()).
			Msg("failed to queue connection acknowledgement")
	}
}
