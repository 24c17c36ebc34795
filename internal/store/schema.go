// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package store

import (
	"context"
	"fmt"
	"time"
)

// createSchema creates tables and indexes. All statements are
// idempotent so startup after an unclean shutdown is safe.
func (s *Store) createSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS places (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT,
			city TEXT,
			category TEXT,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			average_rating DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,

		// categories holds the organizer-entered names as a JSON array;
		// topic normalization happens at dispatch time, not at rest.
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			categories TEXT,
			place_id UUID NOT NULL,
			organizer_id TEXT,
			starts_at TIMESTAMP NOT NULL,
			ends_at TIMESTAMP,
			cancelled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,

		// reminded_at tracks reminder delivery so each attendee is
		// reminded at most once per event.
		`CREATE TABLE IF NOT EXISTS event_attendees (
			event_id UUID NOT NULL,
			user_id TEXT NOT NULL,
			registered_at TIMESTAMP NOT NULL,
			reminded_at TIMESTAMP,
			PRIMARY KEY (event_id, user_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_place ON events(place_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_places_coords ON places(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_attendees_event ON event_attendees(event_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}
