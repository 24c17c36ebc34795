// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package reminder polls for events entering their reminder window and
// dispatches event_reminder frames to each attendee's personal topic.
package reminder

import (
	"context"
	"time"

	"github.com/placepulse/placepulse/internal/config"
	"github.com/placepulse/placepulse/internal/dispatch"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/store"
)

// Scheduler periodically scans the store for events starting within
// the lead window and reminds their attendees. An attendee is marked
// reminded only after a successful delivery, so users offline at one
// tick are retried on later ticks until the event starts.
type Scheduler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	interval   time.Duration
	lead       time.Duration
}

// New creates a Scheduler from the reminders configuration.
func New(st *store.Store, dispatcher *dispatch.Dispatcher, cfg config.RemindersConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	lead := cfg.Lead
	if lead <= 0 {
		lead = time.Hour
	}
	return &Scheduler{
		store:      st,
		dispatcher: dispatcher,
		interval:   interval,
		lead:       lead,
	}
}

// Serve runs the polling loop until the context is cancelled. It
// satisfies suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().
		Dur("interval", s.interval).
		Dur("lead", s.lead).
		Msg("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick runs one scan. Failures are logged and retried on the next
// tick; a broken store must not stop the loop.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	events, err := s.store.EventsStartingBetween(ctx, now, now.Add(s.lead))
	if err != nil {
		logging.Error().Err(err).Msg("Reminder scan failed")
		return
	}

	for _, event := range events {
		users, err := s.store.UnremindedAttendees(ctx, event.ID)
		if err != nil {
			logging.Error().
				Str("event_id", event.ID.String()).
				Err(err).
				Msg("Failed to load attendees for reminder")
			continue
		}

		for _, userID := range users {
			if delivered := s.dispatcher.EventReminder(userID, event, event.StartsAt); delivered == 0 {
				continue
			}
			metrics.RemindersSent.Inc()
			if err := s.store.MarkReminded(ctx, event.ID, userID); err != nil {
				logging.Warn().
					Str("event_id", event.ID.String()).
					Str("user_id", userID).
					Err(err).
					Msg("Failed to mark reminder sent")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "reminder-scheduler"
}
