// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/metrics"
)

// AddAttendee registers a user for an event. Re-registering is a no-op.
func (s *Store) AddAttendee(ctx context.Context, eventID uuid.UUID, userID string) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("add_attendee", start, err) }(time.Now())

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO event_attendees (event_id, user_id, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`,
		eventID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add attendee: %w", err)
	}
	return nil
}

// AttendeesForEvent returns the user IDs registered for an event, in
// registration order.
func (s *Store) AttendeesForEvent(ctx context.Context, eventID uuid.UUID) (users []string, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("attendees_for_event", start, err) }(time.Now())

	return s.queryAttendees(ctx, `
		SELECT user_id FROM event_attendees
		WHERE event_id = ?
		ORDER BY registered_at ASC`, eventID)
}

// UnremindedAttendees returns the attendees of an event who have not
// yet been sent a reminder.
func (s *Store) UnremindedAttendees(ctx context.Context, eventID uuid.UUID) (users []string, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("unreminded_attendees", start, err) }(time.Now())

	return s.queryAttendees(ctx, `
		SELECT user_id FROM event_attendees
		WHERE event_id = ? AND reminded_at IS NULL
		ORDER BY registered_at ASC`, eventID)
}

// MarkReminded records that a reminder was sent, making the attendee
// invisible to UnremindedAttendees. Best effort: a crash between send
// and mark can produce one duplicate reminder.
func (s *Store) MarkReminded(ctx context.Context, eventID uuid.UUID, userID string) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("mark_reminded", start, err) }(time.Now())

	_, err = s.conn.ExecContext(ctx, `
		UPDATE event_attendees SET reminded_at = ?
		WHERE event_id = ? AND user_id = ? AND reminded_at IS NULL`,
		time.Now().UTC(), eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

func (s *Store) queryAttendees(ctx context.Context, query string, eventID uuid.UUID) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees: %w", err)
	}
	defer closeQuietly(rows)

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attendee row iteration failed: %w", err)
	}
	return users, nil
}
