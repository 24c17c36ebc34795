// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package reminder

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/dispatch"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/store"
	"github.com/placepulse/placepulse/internal/ws"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

var stubIDCounter atomic.Uint64

type stubSubscriber struct {
	id uint64

	mu     sync.Mutex
	frames []any
}

func newStubSubscriber() *stubSubscriber {
	return &stubSubscriber{id: stubIDCounter.Add(1)}
}

func (s *stubSubscriber) ID() uint64 { return s.id }

func (s *stubSubscriber) Deliver(frame any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *stubSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

var testStoreSemaphore = make(chan struct{}, 1)

type fixture struct {
	store     *store.Store
	registry  *ws.Registry
	scheduler *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testStoreSemaphore <- struct{}{}
	t.Cleanup(func() { <-testStoreSemaphore })

	st, err := store.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	registry := ws.NewRegistry()
	dispatcher := dispatch.New(registry, nil)
	scheduler := New(st, dispatcher, config.RemindersConfig{
		Enabled:  true,
		Interval: time.Minute,
		Lead:     time.Hour,
	})

	return &fixture{store: st, registry: registry, scheduler: scheduler}
}

func (f *fixture) seedEvent(t *testing.T, startsIn time.Duration, attendees ...string) *models.Event {
	t.Helper()
	ctx := context.Background()

	place := &models.Place{ID: uuid.New(), Name: "Chez Rose", Latitude: 6.17, Longitude: 1.23}
	if err := f.store.InsertPlace(ctx, place); err != nil {
		t.Fatal(err)
	}

	event := &models.Event{
		ID:       uuid.New(),
		Title:    "Concert",
		PlaceID:  place.ID,
		StartsAt: time.Now().Add(startsIn),
	}
	if err := f.store.InsertEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	for _, user := range attendees {
		if err := f.store.AddAttendee(ctx, event.ID, user); err != nil {
			t.Fatal(err)
		}
	}
	return event
}

func TestTickRemindsAttendeesInWindow(t *testing.T) {
	f := newFixture(t)

	f.seedEvent(t, 30*time.Minute, "alice", "bob")

	alice := newStubSubscriber()
	bob := newStubSubscriber()
	f.registry.Join(ws.UserTopic("alice"), alice)
	f.registry.Join(ws.UserTopic("bob"), bob)

	f.scheduler.tick(context.Background(), time.Now())

	if alice.count() != 1 || bob.count() != 1 {
		t.Fatalf("reminders = alice %d, bob %d; want 1 each", alice.count(), bob.count())
	}

	// A second tick must not remind again.
	f.scheduler.tick(context.Background(), time.Now())
	if alice.count() != 1 || bob.count() != 1 {
		t.Error("attendees reminded twice")
	}
}

func TestTickSkipsEventsOutsideWindow(t *testing.T) {
	f := newFixture(t)

	f.seedEvent(t, 3*time.Hour, "alice") // beyond the 1h lead
	f.seedEvent(t, -time.Hour, "alice")  // already started

	alice := newStubSubscriber()
	f.registry.Join(ws.UserTopic("alice"), alice)

	f.scheduler.tick(context.Background(), time.Now())
	if alice.count() != 0 {
		t.Errorf("got %d reminders for events outside the window", alice.count())
	}
}

func TestTickRetriesOfflineAttendees(t *testing.T) {
	f := newFixture(t)

	f.seedEvent(t, 30*time.Minute, "alice")

	// First tick: alice is offline, nothing delivered, nothing marked.
	f.scheduler.tick(context.Background(), time.Now())

	alice := newStubSubscriber()
	f.registry.Join(ws.UserTopic("alice"), alice)

	// Second tick: alice is connected now and must still be reminded.
	f.scheduler.tick(context.Background(), time.Now())
	if alice.count() != 1 {
		t.Errorf("got %d reminders after reconnect, want 1", alice.count())
	}
}

func TestTickSkipsCancelledEvents(t *testing.T) {
	f := newFixture(t)

	event := f.seedEvent(t, 30*time.Minute, "alice")
	if err := f.store.CancelEvent(context.Background(), event.ID); err != nil {
		t.Fatal(err)
	}

	alice := newStubSubscriber()
	f.registry.Join(ws.UserTopic("alice"), alice)

	f.scheduler.tick(context.Background(), time.Now())
	if alice.count() != 0 {
		t.Error("attendee reminded of a cancelled event")
	}
}
