// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package dispatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/ws"
)

// watcherHarness upgrades connections into sessions of a fixed feed
// and tracks them in an index.
type watcherHarness struct {
	srv      *httptest.Server
	registry *ws.Registry
	index    *ws.Index
	sessions chan *ws.Session
}

func newWatcherHarness(t *testing.T, feed string) *watcherHarness {
	t.Helper()

	h := &watcherHarness{
		registry: ws.NewRegistry(),
		index:    ws.NewIndex(),
		sessions: make(chan *ws.Session, 4),
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s := ws.NewSession(feed, conn, h.registry, "", ws.SessionConfig{
			OnClose: func(s *ws.Session) { h.index.Remove(s) },
		})
		h.index.Add(s)
		s.Start()
		h.sessions <- s
	}))
	t.Cleanup(h.srv.Close)

	return h
}

func (h *watcherHarness) dial(t *testing.T) (*websocket.Conn, *ws.Session) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case s := <-h.sessions:
		return conn, s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side session")
		return nil, nil
	}
}

func readWatcherFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return frame
}

func TestWatcherNotifiesSessionsInRadius(t *testing.T) {
	t.Parallel()

	h := newWatcherHarness(t, ws.FeedEvents)

	nearConn, nearSession := h.dial(t)
	farConn, farSession := h.dial(t)

	if err := nearSession.SetLocation(6.1725, 1.2314, 10); err != nil {
		t.Fatal(err)
	}
	if err := farSession.SetLocation(9.50, 1.18, 10); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(h.index, New(h.registry, nil))
	watcher.EventCreated(concertAt(&models.Place{
		ID: uuid.New(), Name: "Chez Rose", Latitude: 6.175, Longitude: 1.235,
	}))

	frame := readWatcherFrame(t, nearConn)
	if frame["type"] != ws.FrameProximityEvent {
		t.Errorf("near session frame type = %v, want proximity_event", frame["type"])
	}
	if d, ok := frame["distance"].(float64); !ok || d <= 0 || d > 10 {
		t.Errorf("distance = %v, want within (0, 10]", frame["distance"])
	}

	// The far session must see nothing.
	if err := farConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if _, data, err := farConn.ReadMessage(); err == nil {
		t.Errorf("far session unexpectedly received %q", data)
	}
}

func TestWatcherLocationFeedFrame(t *testing.T) {
	t.Parallel()

	h := newWatcherHarness(t, ws.FeedLocation)
	conn, session := h.dial(t)

	if err := session.SetLocation(6.1725, 1.2314, 10); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(h.index, New(h.registry, nil))
	watcher.EventCreated(concertAt(&models.Place{
		ID: uuid.New(), Name: "Chez Rose", Latitude: 6.175, Longitude: 1.235,
	}))

	frame := readWatcherFrame(t, conn)
	if frame["type"] != ws.FrameLocationEvent {
		t.Errorf("location feed frame type = %v, want location_event", frame["type"])
	}
}

func TestWatcherIgnoresSessionsWithoutLocation(t *testing.T) {
	t.Parallel()

	h := newWatcherHarness(t, ws.FeedEvents)
	conn, _ := h.dial(t)

	watcher := NewWatcher(h.index, New(h.registry, nil))
	watcher.EventCreated(concertAt(lomePlace()))

	if err := conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("locationless session unexpectedly received %q", data)
	}
}
