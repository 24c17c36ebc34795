// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/placepulse/placepulse/internal/geo"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB
)

// Feed identifiers for the three session variants.
const (
	FeedEvents        = "events"
	FeedNotifications = "notifications"
	FeedLocation      = "location"
)

var (
	// ErrSessionClosed is returned by Deliver after the session has
	// transitioned to its terminal state.
	ErrSessionClosed = errors.New("session closed")

	// ErrSendBufferFull is returned by Deliver when the outbound
	// buffer is saturated; the frame is dropped (at-most-once).
	ErrSendBufferFull = errors.New("send buffer full")
)

// sessionIDCounter assigns unique, monotonically increasing session IDs.
var sessionIDCounter atomic.Uint64

// LocationSubscription records the last location a session subscribed
// to. It pre-seeds initial results and drives proximity matching; it is
// not re-evaluated against the registry on every event.
type LocationSubscription struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Cell      geo.Cell
}

// SessionConfig carries per-session behavior knobs from configuration.
type SessionConfig struct {
	// SendBuffer is the outbound frame buffer capacity.
	SendBuffer int

	// InboundRatePerSecond bounds inbound client frames; frames beyond
	// the rate (burst = 2x) are dropped silently.
	InboundRatePerSecond float64

	// ExpandNeighborCells widens geographic subscriptions to the 3x3
	// cell neighborhood around the subscribed cell.
	ExpandNeighborCells bool

	// DefaultRadiusKm applies when subscribe_location omits radius.
	DefaultRadiusKm float64

	// OnClose, when set, runs once after the session has left all
	// topics, with no further frames deliverable.
	OnClose func(*Session)
}

// Session is one client connection: it owns the WebSocket transport,
// tracks the topics it joined, translates inbound frames into registry
// operations, and pushes outbound frames over its send buffer.
//
// Lifecycle is Connecting -> Open -> Closed; Closed is terminal and a
// reconnecting client gets a brand-new session.
type Session struct {
	id       uint64
	feed     string
	conn     *websocket.Conn
	registry *Registry
	cfg      SessionConfig
	limiter  *rate.Limiter

	// userID is empty for anonymous sessions; anonymous sessions are
	// never admitted to the notifications feed.
	userID string

	// sendMu orders Deliver against close: once closed is set under
	// the mutex, no Deliver can touch the send channel again.
	sendMu sync.Mutex
	send   chan any
	closed bool

	mu       sync.Mutex
	topics   []string
	location *LocationSubscription

	// started flips when Start launches the pumps. Before that the
	// session owns the transport and must close it itself on shutdown.
	started   atomic.Bool
	closeOnce sync.Once
}

// NewSession wraps an upgraded connection in a session. The caller
// joins baseline topics and calls Start once setup frames are queued.
func NewSession(feed string, conn *websocket.Conn, registry *Registry, userID string, cfg SessionConfig) *Session {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.InboundRatePerSecond <= 0 {
		cfg.InboundRatePerSecond = 20
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}

	return &Session{
		id:       sessionIDCounter.Add(1),
		feed:     feed,
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		userID:   userID,
		limiter:  rate.NewLimiter(rate.Limit(cfg.InboundRatePerSecond), int(2*cfg.InboundRatePerSecond)),
		send:     make(chan any, cfg.SendBuffer),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uint64 { return s.id }

// Feed returns which feed variant the session serves.
func (s *Session) Feed() string { return s.feed }

// UserID returns the authenticated user identity, or empty for
// anonymous sessions.
func (s *Session) UserID() string { return s.userID }

// Deliver enqueues a frame without blocking. Implements Subscriber.
func (s *Session) Deliver(frame any) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// JoinTopic joins the topic via the registry and records the
// membership so the session only ever references topics it joined.
func (s *Session) JoinTopic(topic string) {
	s.mu.Lock()
	for _, t := range s.topics {
		if t == topic {
			s.mu.Unlock()
			return
		}
	}
	s.topics = append(s.topics, topic)
	s.mu.Unlock()

	s.registry.Join(topic, s)
}

// Topics returns a snapshot of the joined topic keys, in join order.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.topics))
	copy(out, s.topics)
	return out
}

// Location returns the session's recorded location subscription.
func (s *Session) Location() (LocationSubscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return LocationSubscription{}, false
	}
	return *s.location, true
}

// SetLocation records the session's location subscription and joins
// the matching geographic topic(s).
func (s *Session) SetLocation(lat, lng, radiusKm float64) error {
	cell, err := geo.BucketOf(lat, lng)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.location = &LocationSubscription{
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radiusKm,
		Cell:      cell,
	}
	s.mu.Unlock()

	if s.cfg.ExpandNeighborCells {
		for _, c := range cell.Neighborhood() {
			s.JoinTopic(c.Topic())
		}
	} else {
		s.JoinTopic(cell.Topic())
	}
	return nil
}

// Start launches the read and write pumps. Frames delivered before
// Start are flushed in order once the write pump runs.
func (s *Session) Start() {
	s.started.Store(true)
	metrics.ActiveConnections.WithLabelValues(s.feed).Inc()
	metrics.ConnectionsTotal.WithLabelValues(s.feed).Inc()

	go s.writePump()
	go s.readPump()
}

// Close terminates the session from the server side.
func (s *Session) Close() {
	s.shutdown(websocket.CloseNormalClosure)
}

// shutdown transitions the session to Closed: it leaves every topic
// before the disconnect completes, so no publish started afterwards
// can observe this subscriber, then releases the write pump.
func (s *Session) shutdown(closeCode int) {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		s.sendMu.Unlock()

		s.registry.LeaveAll(s)
		close(s.send)

		if s.started.Load() {
			metrics.ActiveConnections.WithLabelValues(s.feed).Dec()
		} else {
			// No pumps are running to drain the send channel or close
			// the transport, so shut the connection down here.
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCode, ""), time.Now().Add(writeWait))
			_ = s.conn.Close()
		}

		if s.cfg.OnClose != nil {
			s.cfg.OnClose(s)
		}

		logging.Info().
			Str("feed", s.feed).
			Uint64("session", s.id).
			Int("close_code", closeCode).
			Msg("websocket session closed")
	})
}

// readPump pumps inbound frames from the transport into the session.
func (s *Session) readPump() {
	closeCode := websocket.CloseNormalClosure
	defer func() {
		s.shutdown(closeCode)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				closeCode = closeErr.Code
			} else {
				closeCode = websocket.CloseAbnormalClosure
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Uint64("session", s.id).Msg("unexpected websocket close error")
			}
			return
		}

		if !s.limiter.Allow() {
			logging.Debug().Uint64("session", s.id).Msg("inbound frame dropped by rate limit")
			continue
		}

		s.handleInbound(data)
	}
}

// writePump pumps frames from the send buffer to the transport,
// interleaving protocol-level pings to detect dead peers.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The session closed the channel during shutdown.
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				logging.Error().Err(err).Uint64("session", s.id).Msg("failed to marshal outbound frame")
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Error().Err(err).Uint64("session", s.id).Msg("failed to write frame")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleInbound parses one client frame and applies its intent.
// Malformed JSON is reported back to the offending client only; the
// connection stays open. Unrecognized intents are silently ignored.
func (s *Session) handleInbound(data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.deliverOrLog(NewErrorFrame("invalid JSON format"))
		return
	}

	switch frame.Type {
	case FramePing:
		s.deliverOrLog(NewPongFrame())

	case FrameSubscribeLocation:
		s.handleSubscribeLocation(&frame)

	case FrameSubscribeCategory:
		s.handleSubscribeCategory(&frame)

	default:
		// Unrecognized intents are not an error.
	}
}

// handleSubscribeLocation records the location and joins the matching
// geographic topic. Requests missing either coordinate are ignored.
func (s *Session) handleSubscribeLocation(frame *InboundFrame) {
	if frame.Latitude == nil || frame.Longitude == nil {
		return
	}

	radius := s.cfg.DefaultRadiusKm
	if frame.Radius != nil && *frame.Radius > 0 {
		radius = *frame.Radius
	}

	if err := s.SetLocation(*frame.Latitude, *frame.Longitude, radius); err != nil {
		s.deliverOrLog(NewErrorFrame("invalid coordinates"))
		return
	}

	s.deliverOrLog(NewLocationConfirmedFrame(*frame.Latitude, *frame.Longitude, radius))
}

// handleSubscribeCategory joins one category topic per supplied name.
// Requests with an empty category list are ignored. The confirmation
// echoes the categories exactly as supplied.
func (s *Session) handleSubscribeCategory(frame *InboundFrame) {
	if len(frame.Categories) == 0 {
		return
	}

	for _, category := range frame.Categories {
		s.JoinTopic(CategoryTopic(NormalizeCategory(category)))
	}

	s.deliverOrLog(NewCategoriesConfirmedFrame(frame.Categories))
}

// deliverOrLog enqueues a frame to this session, logging a failed
// delivery instead of surfacing it.
func (s *Session) deliverOrLog(frame any) {
	if err := s.Deliver(frame); err != nil {
		metrics.DeliveriesDropped.Inc()
		logging.Warn().Err(err).Uint64("session", s.id).Msg("delivery to own session skipped")
	}
}
