// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/models"
)

// eventColumns is the SELECT list shared by event reads. The owning
// place is always joined because routing needs its coordinates.
const eventColumns = `
	CAST(e.id AS VARCHAR), e.title, e.description, e.categories,
	CAST(e.place_id AS VARCHAR), e.organizer_id,
	e.starts_at, e.ends_at, e.cancelled, e.created_at,
	p.name, p.address, p.city, p.category, p.latitude, p.longitude, p.average_rating, p.created_at`

// InsertEvent stores a new event. Replays are ignored so mutation
// ingest stays idempotent.
func (s *Store) InsertEvent(ctx context.Context, event *models.Event) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("insert_event", start, err) }(time.Now())

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	categories, err := marshalCategories(event.Categories)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO events (id, title, description, categories, place_id, organizer_id, starts_at, ends_at, cancelled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		event.ID, event.Title, event.Description, categories,
		event.PlaceID, event.OrganizerID, event.StartsAt, event.EndsAt,
		event.Cancelled, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpdateEvent overwrites the mutable fields of an existing event.
func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("update_event", start, err) }(time.Now())

	categories, err := marshalCategories(event.Categories)
	if err != nil {
		return err
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, categories = ?, place_id = ?, starts_at = ?, ends_at = ?, cancelled = ?
		WHERE id = ?`,
		event.Title, event.Description, categories, event.PlaceID,
		event.StartsAt, event.EndsAt, event.Cancelled, event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelEvent flags an event as cancelled. Cancelling an already
// cancelled or unknown event returns ErrNotFound.
func (s *Store) CancelEvent(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("cancel_event", start, err) }(time.Now())

	res, err := s.conn.ExecContext(ctx,
		`UPDATE events SET cancelled = TRUE WHERE id = ? AND NOT cancelled`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetEvent returns the event with its place joined, or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (event *models.Event, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("get_event", start, err) }(time.Now())

	row := s.conn.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events e JOIN places p ON p.id = e.place_id
		WHERE e.id = ?`, id)

	event, err = scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// UpcomingEventsForPlaces returns the soonest non-cancelled events at
// the given places that start after now, capped at limit.
func (s *Store) UpcomingEventsForPlaces(ctx context.Context, placeIDs []uuid.UUID, now time.Time, limit int) (events []*models.Event, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("upcoming_events", start, err) }(time.Now())

	if len(placeIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events e JOIN places p ON p.id = e.place_id
		WHERE e.place_id IN (` + placeholders(len(placeIDs)) + `)
		  AND NOT e.cancelled
		  AND e.starts_at > ?
		ORDER BY e.starts_at ASC
		LIMIT ?`

	args := make([]any, 0, len(placeIDs)+2)
	for _, id := range placeIDs {
		args = append(args, id)
	}
	args = append(args, now, limit)

	return s.queryEvents(ctx, query, args...)
}

// EventsStartingBetween returns non-cancelled events whose start falls
// in (from, to]. The reminder scheduler polls this window.
func (s *Store) EventsStartingBetween(ctx context.Context, from, to time.Time) (events []*models.Event, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("events_between", start, err) }(time.Now())

	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events e JOIN places p ON p.id = e.place_id
		WHERE NOT e.cancelled AND e.starts_at > ? AND e.starts_at <= ?
		ORDER BY e.starts_at ASC`,
		from, to,
	)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer closeQuietly(rows)

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event row iteration failed: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event       models.Event
		place       models.Place
		idStr       string
		placeIDStr  string
		description sql.NullString
		categories  sql.NullString
		organizer   sql.NullString
		endsAt      sql.NullTime
		address     sql.NullString
		city        sql.NullString
		placeCat    sql.NullString
	)

	err := row.Scan(&idStr, &event.Title, &description, &categories,
		&placeIDStr, &organizer, &event.StartsAt, &endsAt, &event.Cancelled, &event.CreatedAt,
		&place.Name, &address, &city, &placeCat,
		&place.Latitude, &place.Longitude, &place.AverageRating, &place.CreatedAt)
	if err != nil {
		return nil, err
	}

	event.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", idStr, err)
	}
	event.PlaceID, err = uuid.Parse(placeIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid place id %q: %w", placeIDStr, err)
	}

	event.Description = description.String
	event.OrganizerID = organizer.String
	if endsAt.Valid {
		t := endsAt.Time
		event.EndsAt = &t
	}
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &event.Categories); err != nil {
			return nil, fmt.Errorf("invalid categories payload: %w", err)
		}
	}

	place.ID = event.PlaceID
	place.Address = address.String
	place.City = city.String
	place.Category = placeCat.String
	event.Place = &place

	return &event, nil
}

// marshalCategories encodes the category list as a JSON text column.
// Nil and empty both store as NULL.
func marshalCategories(categories []string) (any, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	return string(data), nil
}

// placeholders builds "?, ?, ..." for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, '?')
	}
	return string(out)
}
