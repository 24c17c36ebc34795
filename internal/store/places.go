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

	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// InsertPlace stores a new place. Replays of the same mutation are
// ignored via ON CONFLICT DO NOTHING so ingest stays idempotent.
func (s *Store) InsertPlace(ctx context.Context, place *models.Place) (err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("insert_place", start, err) }(time.Now())

	if place.ID == uuid.Nil {
		place.ID = uuid.New()
	}
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now().UTC()
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO places (id, name, address, city, category, latitude, longitude, average_rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		place.ID, place.Name, place.Address, place.City, place.Category,
		place.Latitude, place.Longitude, place.AverageRating, place.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

// GetPlace returns the place with the given ID, or ErrNotFound.
func (s *Store) GetPlace(ctx context.Context, id uuid.UUID) (place *models.Place, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("get_place", start, err) }(time.Now())

	row := s.conn.QueryRowContext(ctx, `
		SELECT CAST(id AS VARCHAR), name, address, city, category, latitude, longitude, average_rating, created_at
		FROM places WHERE id = ?`, id)

	place, err = scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return place, nil
}

// PlacesInBoundingBox returns places inside the latitude/longitude box.
// The box is a cheap pre-filter; callers refine with haversine distance.
func (s *Store) PlacesInBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) (places []*models.Place, err error) {
	defer func(start time.Time) { metrics.ObserveStoreQuery("places_in_bbox", start, err) }(time.Now())

	rows, err := s.conn.QueryContext(ctx, `
		SELECT CAST(id AS VARCHAR), name, address, city, category, latitude, longitude, average_rating, created_at
		FROM places
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY name`,
		minLat, maxLat, minLng, maxLng,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query places in bounding box: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		place, scanErr := scanPlace(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan place: %w", scanErr)
			return nil, err
		}
		places = append(places, place)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("place row iteration failed: %w", err)
	}
	return places, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*models.Place, error) {
	var (
		place   models.Place
		idStr   string
		address sql.NullString
		city    sql.NullString
		categ   sql.NullString
	)
	err := row.Scan(&idStr, &place.Name, &address, &city, &categ,
		&place.Latitude, &place.Longitude, &place.AverageRating, &place.CreatedAt)
	if err != nil {
		return nil, err
	}

	place.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid place id %q: %w", idStr, err)
	}
	place.Address = address.String
	place.City = city.String
	place.Category = categ.String
	return &place, nil
}
