// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/placepulse/placepulse/internal/geoloc"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/store"
)

const seedQueryTimeout = 5 * time.Second

// Seeder answers the one-shot current_events query a location feed
// runs right after connecting: nearby places first, then the upcoming
// events at those places. Both hops run behind a circuit breaker so a
// struggling database sheds new location connections fast instead of
// piling queries onto it.
type Seeder struct {
	locator *geoloc.Locator
	store   *store.Store
	limit   int
	breaker *gobreaker.CircuitBreaker[[]*models.Event]
}

// NewSeeder creates a Seeder capping each seed at limit events.
func NewSeeder(locator *geoloc.Locator, st *store.Store, limit int) *Seeder {
	settings := gobreaker.Settings{
		Name:        "seed-query",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("seed query circuit breaker state changed")
		},
	}

	return &Seeder{
		locator: locator,
		store:   st,
		limit:   limit,
		breaker: gobreaker.NewCircuitBreaker[[]*models.Event](settings),
	}
}

// UpcomingNearby returns summaries of the upcoming events within
// radiusKm of the given point, soonest first. A breaker-open state or
// query failure is returned as an error; the caller treats that as
// fatal to the connection attempt rather than seeding an empty list.
func (s *Seeder) UpcomingNearby(ctx context.Context, lat, lng, radiusKm float64) ([]*models.EventSummary, error) {
	start := time.Now()
	events, err := s.breaker.Execute(func() ([]*models.Event, error) {
		return s.query(ctx, lat, lng, radiusKm)
	})
	metrics.SeedQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SeedQueryErrors.Inc()
		return nil, err
	}

	summaries := make([]*models.EventSummary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, event.Summary())
	}
	return summaries, nil
}

func (s *Seeder) query(ctx context.Context, lat, lng, radiusKm float64) ([]*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, seedQueryTimeout)
	defer cancel()

	nearby, err := s.locator.FindNearbyPlaces(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return nil, nil
	}

	placeIDs := make([]uuid.UUID, 0, len(nearby))
	for _, place := range nearby {
		placeIDs = append(placeIDs, place.Place.ID)
	}
	return s.store.UpcomingEventsForPlaces(ctx, placeIDs, time.Now().UTC(), s.limit)
}
