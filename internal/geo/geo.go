// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package geo provides the geographic cell bucketing used to route
// location-scoped notifications, plus great-circle distance helpers.
//
// Coordinates are bucketed into discrete cells by multiplying each
// coordinate by a fixed resolution (100) and truncating toward zero.
// At resolution 100 a cell spans 0.01 degrees, roughly 1.1 km at the
// equator. Bucketing is deliberately coarse: it gives O(1) topic
// resolution without per-event geodesic math against every connection.
package geo

import (
	"fmt"
	"math"
)

// Resolution is the fixed cell resolution: coordinates are multiplied
// by this factor and truncated to produce cell indices.
const Resolution = 100

// earthRadiusKm is the mean Earth radius used for haversine distances.
const earthRadiusKm = 6371.0

// Cell identifies one discrete geographic bucket.
type Cell struct {
	Lat int
	Lng int
}

// BucketOf maps a coordinate pair to its cell. It is deterministic and
// pure; identical inputs always yield the identical cell. Coordinates
// outside lat [-90,90] or lng [-180,180] are an error.
func BucketOf(lat, lng float64) (Cell, error) {
	if err := Validate(lat, lng); err != nil {
		return Cell{}, err
	}
	// int() truncates toward zero for both signs, matching the
	// routing scheme: (-1.5, -0.2) buckets to (-150, -20).
	return Cell{
		Lat: int(lat * Resolution),
		Lng: int(lng * Resolution),
	}, nil
}

// Validate reports whether the coordinate pair is inside the valid
// latitude/longitude domain.
func Validate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates must be numbers: (%v, %v)", lat, lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v outside [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v outside [-180, 180]", lng)
	}
	return nil
}

// Topic returns the subscription topic key for the cell, e.g. "geo:542:123".
func (c Cell) Topic() string {
	return fmt.Sprintf("geo:%d:%d", c.Lat, c.Lng)
}

// String implements fmt.Stringer.
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Lat, c.Lng)
}

// Neighborhood returns the 3x3 block of cells centered on c, in
// row-major order with c in the middle. Subscribing a connection to the
// whole neighborhood closes the cell-boundary precision gap of
// single-cell routing; it is optional and off by default.
//
// Longitude indices wrap at the antimeridian; latitude indices clamp at
// the poles (cells beyond a pole are dropped rather than wrapped).
func (c Cell) Neighborhood() []Cell {
	const maxLat = 90 * Resolution
	const lngSpan = 360 * Resolution

	cells := make([]Cell, 0, 9)
	for dLat := -1; dLat <= 1; dLat++ {
		lat := c.Lat + dLat
		if lat > maxLat || lat < -maxLat {
			continue
		}
		for dLng := -1; dLng <= 1; dLng++ {
			lng := c.Lng + dLng
			if lng > 180*Resolution {
				lng -= lngSpan
			} else if lng < -180*Resolution {
				lng += lngSpan
			}
			cells = append(cells, Cell{Lat: lat, Lng: lng})
		}
	}
	return cells
}

// Haversine returns the great-circle distance in kilometers between two
// coordinate pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
