// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package geoloc answers radius queries over the places store. It
// pre-filters with a latitude/longitude bounding box and refines with
// haversine distance.
package geoloc

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/placepulse/placepulse/internal/geo"
	"github.com/placepulse/placepulse/internal/models"
)

// kmPerDegreeLat is the approximate north-south span of one degree of
// latitude. Longitude degrees shrink with cos(latitude).
const kmPerDegreeLat = 111.32

// PlaceSource is the slice of the store that radius queries need.
type PlaceSource interface {
	PlacesInBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*models.Place, error)
}

// NearbyPlace pairs a place with its distance from the query point.
type NearbyPlace struct {
	Place      *models.Place
	DistanceKm float64
}

// Locator runs radius queries against a place source.
type Locator struct {
	source PlaceSource
}

// New creates a Locator over the given place source.
func New(source PlaceSource) *Locator {
	return &Locator{source: source}
}

// FindNearbyPlaces returns the places within radiusKm of the point,
// closest first. The bounding box over-fetches near the poles and
// around the antimeridian; the haversine filter discards the excess.
func (l *Locator) FindNearbyPlaces(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyPlace, error) {
	if err := geo.Validate(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive: %v", radiusKm)
	}

	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radiusKm)

	places, err := l.source.PlacesInBoundingBox(ctx, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate places: %w", err)
	}

	nearby := make([]NearbyPlace, 0, len(places))
	for _, place := range places {
		d := geo.Haversine(lat, lng, place.Latitude, place.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, NearbyPlace{Place: place, DistanceKm: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// boundingBox returns the lat/lng box enclosing the radius around the
// point, clamped to the coordinate domain.
func boundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKm / kmPerDegreeLat

	// Near the poles the longitude span degenerates; fall back to the
	// full range rather than dividing by ~zero.
	lngDelta := 180.0
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 1e-6 {
		lngDelta = radiusKm / (kmPerDegreeLat * cosLat)
	}

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)
	minLng = math.Max(lng-lngDelta, -180)
	maxLng = math.Min(lng+lngDelta, 180)
	return minLat, maxLat, minLng, maxLng
}
