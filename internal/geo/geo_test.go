// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package geo

import (
	"math"
	"testing"
)

func TestBucketOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lat, lng float64
		want     Cell
	}{
		{"positive truncation", 5.42, 1.23, Cell{542, 123}},
		{"negative truncation toward zero", -1.5, -0.2, Cell{-150, -20}},
		{"origin", 0, 0, Cell{0, 0}},
		{"sub-cell precision discarded", 5.4299, 1.2301, Cell{542, 123}},
		{"domain maxima", 90, 180, Cell{9000, 18000}},
		{"domain minima", -90, -180, Cell{-9000, -18000}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BucketOf(tc.lat, tc.lng)
			if err != nil {
				t.Fatalf("BucketOf(%v, %v) returned error: %v", tc.lat, tc.lng, err)
			}
			if got != tc.want {
				t.Errorf("BucketOf(%v, %v) = %v, want %v", tc.lat, tc.lng, got, tc.want)
			}
		})
	}
}

func TestBucketOfDeterministic(t *testing.T) {
	t.Parallel()

	a, err := BucketOf(48.8566, 2.3522)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BucketOf(48.8566, 2.3522)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("identical inputs yielded different cells: %v vs %v", a, b)
	}
}

func TestBucketOfInvalidDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude too high", 90.01, 0},
		{"latitude too low", -91, 0},
		{"longitude too high", 0, 180.5},
		{"longitude too low", 0, -181},
		{"NaN latitude", math.NaN(), 0},
		{"NaN longitude", 0, math.NaN()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := BucketOf(tc.lat, tc.lng); err == nil {
				t.Errorf("BucketOf(%v, %v) expected error, got nil", tc.lat, tc.lng)
			}
		})
	}
}

func TestCellTopic(t *testing.T) {
	t.Parallel()

	cell := Cell{Lat: 542, Lng: 123}
	if got := cell.Topic(); got != "geo:542:123" {
		t.Errorf("Topic() = %q, want geo:542:123", got)
	}

	neg := Cell{Lat: -150, Lng: -20}
	if got := neg.Topic(); got != "geo:-150:-20" {
		t.Errorf("Topic() = %q, want geo:-150:-20", got)
	}
}

func TestNeighborhood(t *testing.T) {
	t.Parallel()

	center := Cell{Lat: 542, Lng: 123}
	cells := center.Neighborhood()

	if len(cells) != 9 {
		t.Fatalf("expected 9 cells, got %d", len(cells))
	}
	if cells[4] != center {
		t.Errorf("expected center cell in the middle, got %v", cells[4])
	}

	seen := make(map[Cell]bool, len(cells))
	for _, c := range cells {
		if seen[c] {
			t.Errorf("duplicate cell %v in neighborhood", c)
		}
		seen[c] = true
	}
}

func TestNeighborhoodAtPole(t *testing.T) {
	t.Parallel()

	// Cells past the pole are dropped, not wrapped.
	pole := Cell{Lat: 9000, Lng: 0}
	cells := pole.Neighborhood()
	if len(cells) != 6 {
		t.Errorf("expected 6 cells at the pole, got %d", len(cells))
	}
	for _, c := range cells {
		if c.Lat > 9000 {
			t.Errorf("cell %v extends past the pole", c)
		}
	}
}

func TestNeighborhoodAntimeridianWrap(t *testing.T) {
	t.Parallel()

	edge := Cell{Lat: 0, Lng: 18000}
	for _, c := range edge.Neighborhood() {
		if c.Lng > 18000 {
			t.Errorf("cell %v not wrapped at the antimeridian", c)
		}
	}
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	// Paris to London is roughly 343 km.
	d := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 355 {
		t.Errorf("Paris-London distance = %v km, want ~343", d)
	}

	if d := Haversine(6.13, 1.22, 6.13, 1.22); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}

	// Symmetry.
	ab := Haversine(6.13, 1.22, 6.17, 1.25)
	ba := Haversine(6.17, 1.25, 6.13, 1.22)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}
