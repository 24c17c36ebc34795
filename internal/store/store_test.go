// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

// testStoreSemaphore serializes DuckDB-backed tests. Concurrent CGO
// connections under CI resource pressure can hang.
var testStoreSemaphore = make(chan struct{}, 1)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	testStoreSemaphore <- struct{}{}
	t.Cleanup(func() { <-testStoreSemaphore })

	s, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close test store: %v", err)
		}
	})
	return s
}

func testPlace(name string, lat, lng float64) *models.Place {
	return &models.Place{
		ID:        uuid.New(),
		Name:      name,
		City:      "Lome",
		Category:  "restaurant",
		Latitude:  lat,
		Longitude: lng,
	}
}

func testEvent(place *models.Place, title string, startsAt time.Time) *models.Event {
	return &models.Event{
		ID:         uuid.New(),
		Title:      title,
		Categories: []string{"Live Music", "Food"},
		PlaceID:    place.ID,
		StartsAt:   startsAt,
	}
}

func TestPlaceRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	place := testPlace("Chez Rose", 6.1725, 1.2314)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatalf("insert place: %v", err)
	}

	got, err := s.GetPlace(ctx, place.ID)
	if err != nil {
		t.Fatalf("get place: %v", err)
	}
	if got.Name != "Chez Rose" || got.City != "Lome" || got.Latitude != 6.1725 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestPlaceInsertIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	place := testPlace("Chez Rose", 6.17, 1.23)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatalf("replayed insert should be a no-op, got: %v", err)
	}
}

func TestGetPlaceNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetPlace(context.Background(), uuid.New())
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPlacesInBoundingBox(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	inside := testPlace("Inside", 6.17, 1.23)
	outside := testPlace("Outside", 9.50, 1.18)
	for _, p := range []*models.Place{inside, outside} {
		if err := s.InsertPlace(ctx, p); err != nil {
			t.Fatalf("insert place: %v", err)
		}
	}

	places, err := s.PlacesInBoundingBox(ctx, 6.0, 6.5, 1.0, 1.5)
	if err != nil {
		t.Fatalf("bounding box query: %v", err)
	}
	if len(places) != 1 || places[0].ID != inside.ID {
		t.Errorf("got %d places, want only %q", len(places), inside.Name)
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	place := testPlace("Chez Rose", 6.17, 1.23)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatalf("insert place: %v", err)
	}

	starts := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	event := testEvent(place, "Concert", starts)
	if err := s.InsertEvent(ctx, event); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	got, err := s.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Title != "Concert" || !got.StartsAt.Equal(starts) {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "Live Music" {
		t.Errorf("categories = %v, want the original raw names", got.Categories)
	}
	if got.Place == nil || got.Place.Name != "Chez Rose" {
		t.Error("event read must join the owning place")
	}
}

func TestCancelEvent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	place := testPlace("Chez Rose", 6.17, 1.23)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatal(err)
	}
	event := testEvent(place, "Concert", time.Now().Add(time.Hour))
	if err := s.InsertEvent(ctx, event); err != nil {
		t.Fatal(err)
	}

	if err := s.CancelEvent(ctx, event.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := s.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Cancelled {
		t.Error("event not flagged cancelled")
	}

	// Cancelling again reports not found: nothing left to cancel.
	if err := s.CancelEvent(ctx, event.ID); err != ErrNotFound {
		t.Errorf("second cancel err = %v, want ErrNotFound", err)
	}
}

func TestUpcomingEventsForPlaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	place := testPlace("Chez Rose", 6.17, 1.23)
	other := testPlace("Far Bar", 9.50, 1.18)
	for _, p := range []*models.Place{place, other} {
		if err := s.InsertPlace(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	past := testEvent(place, "Past", now.Add(-time.Hour))
	soon := testEvent(place, "Soon", now.Add(time.Hour))
	later := testEvent(place, "Later", now.Add(3*time.Hour))
	cancelled := testEvent(place, "Cancelled", now.Add(2*time.Hour))
	cancelled.Cancelled = true
	elsewhere := testEvent(other, "Elsewhere", now.Add(time.Hour))
	for _, e := range []*models.Event{past, soon, later, cancelled, elsewhere} {
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	events, err := s.UpcomingEventsForPlaces(ctx, []uuid.UUID{place.ID}, now, 10)
	if err != nil {
		t.Fatalf("upcoming events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (past, cancelled, and other-place excluded)", len(events))
	}
	if events[0].Title != "Soon" || events[1].Title != "Later" {
		t.Errorf("order = %q, %q; want soonest first", events[0].Title, events[1].Title)
	}

	limited, err := s.UpcomingEventsForPlaces(ctx, []uuid.UUID{place.ID}, now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Title != "Soon" {
		t.Errorf("limit 1 returned %d events", len(limited))
	}

	none, err := s.UpcomingEventsForPlaces(ctx, nil, now, 10)
	if err != nil || none != nil {
		t.Errorf("empty place list should return nothing, got %v, %v", none, err)
	}
}

func TestEventsStartingBetween(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	place := testPlace("Chez Rose", 6.17, 1.23)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatal(err)
	}

	within := testEvent(place, "Within", now.Add(30*time.Minute))
	beyond := testEvent(place, "Beyond", now.Add(2*time.Hour))
	for _, e := range []*models.Event{within, beyond} {
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	events, err := s.EventsStartingBetween(ctx, now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("events between: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Within" {
		t.Errorf("got %d events, want only the one inside the window", len(events))
	}
}

func TestAttendeesAndReminders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	place := testPlace("Chez Rose", 6.17, 1.23)
	if err := s.InsertPlace(ctx, place); err != nil {
		t.Fatal(err)
	}
	event := testEvent(place, "Concert", time.Now().Add(time.Hour))
	if err := s.InsertEvent(ctx, event); err != nil {
		t.Fatal(err)
	}

	for _, user := range []string{"alice", "bob", "alice"} {
		if err := s.AddAttendee(ctx, event.ID, user); err != nil {
			t.Fatalf("add attendee %s: %v", user, err)
		}
	}

	attendees, err := s.AttendeesForEvent(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attendees) != 2 {
		t.Fatalf("attendees = %v, want alice and bob once each", attendees)
	}

	unreminded, err := s.UnremindedAttendees(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(unreminded) != 2 {
		t.Fatalf("unreminded = %v, want both attendees", unreminded)
	}

	if err := s.MarkReminded(ctx, event.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	unreminded, err = s.UnremindedAttendees(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(unreminded) != 1 || unreminded[0] != "bob" {
		t.Errorf("unreminded after mark = %v, want only bob", unreminded)
	}
}
